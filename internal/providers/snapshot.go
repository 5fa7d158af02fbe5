package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"collate/internal/catalog"
)

// RecordJSON is the wire form of a provider record, used by snapshot
// files and catalog imports. Absent keys stay nil and translate to absent
// record fields.
type RecordJSON struct {
	ID          string            `json:"id"`
	MediaType   string            `json:"media_type,omitempty"`
	Title       *string           `json:"title,omitempty"`
	Description *string           `json:"description,omitempty"`
	Status      *string           `json:"status,omitempty"`
	Episodes    *int              `json:"episodes,omitempty"`
	Chapters    *int              `json:"chapters,omitempty"`
	Volumes     *int              `json:"volumes,omitempty"`
	CoverURL    *string           `json:"cover_url,omitempty"`
	Score       *float64          `json:"score,omitempty"`
	Rank        *int              `json:"rank,omitempty"`
	Popularity  *int              `json:"popularity,omitempty"`
	Year        *int              `json:"year,omitempty"`
	Genres      []string          `json:"genres,omitempty"`
	AltTitles   []string          `json:"alt_titles,omitempty"`
	Relations   map[string]string `json:"relations,omitempty"`
}

// Decode converts the wire form into a Record for the named provider.
func (rj RecordJSON) Decode(provider string) (*Record, error) {
	id := strings.TrimSpace(rj.ID)
	if id == "" {
		return nil, Wrap(ErrFatal, provider, "decode record", "missing id", nil)
	}
	record := &Record{
		Provider:    strings.ToLower(provider),
		ID:          id,
		Title:       rj.Title,
		Description: rj.Description,
		Status:      rj.Status,
		Episodes:    rj.Episodes,
		Chapters:    rj.Chapters,
		Volumes:     rj.Volumes,
		CoverURL:    rj.CoverURL,
		Score:       rj.Score,
		Rank:        rj.Rank,
		Popularity:  rj.Popularity,
		Year:        rj.Year,
		Genres:      rj.Genres,
		AltTitles:   rj.AltTitles,
	}
	if rj.MediaType != "" {
		mt, ok := catalog.ParseMediaType(rj.MediaType)
		if !ok {
			return nil, Wrap(ErrFatal, provider, "decode record", fmt.Sprintf("unknown media type %q for id %s", rj.MediaType, id), nil)
		}
		record.MediaType = mt
	}
	if len(rj.Relations) > 0 {
		record.Relations = make(map[catalog.Relation]catalog.ExternalRef, len(rj.Relations))
		for kind, value := range rj.Relations {
			ref, ok := catalog.ParseExternalRef(value)
			if !ok {
				return nil, Wrap(ErrFatal, provider, "decode record", fmt.Sprintf("malformed relation ref %q for id %s", value, id), nil)
			}
			record.Relations[catalog.Relation(strings.ToLower(kind))] = ref
		}
	}
	return record, nil
}

// SnapshotFile is a provider export on disk: one provider, many records.
type SnapshotFile struct {
	Provider string       `json:"provider"`
	Records  []RecordJSON `json:"records"`
}

// LoadSnapshot parses a snapshot file and decodes its records.
func LoadSnapshot(path string) (string, []*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("read snapshot: %w", err)
	}
	var file SnapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return "", nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	provider := strings.ToLower(strings.TrimSpace(file.Provider))
	if provider == "" {
		return "", nil, fmt.Errorf("snapshot %s: missing provider name", path)
	}
	records := make([]*Record, 0, len(file.Records))
	for _, rj := range file.Records {
		record, err := rj.Decode(provider)
		if err != nil {
			return "", nil, err
		}
		records = append(records, record)
	}
	return provider, records, nil
}

// SnapshotAdapter serves records from an in-memory snapshot, keyed by id.
// It backs offline enrichment from provider exports and tests.
type SnapshotAdapter struct {
	name    string
	records map[string]*Record
}

// NewSnapshotAdapter builds an adapter over pre-loaded records.
func NewSnapshotAdapter(name string, records []*Record) *SnapshotAdapter {
	indexed := make(map[string]*Record, len(records))
	for _, record := range records {
		indexed[record.ID] = record
	}
	return &SnapshotAdapter{name: strings.ToLower(name), records: indexed}
}

// OpenSnapshotAdapter loads a snapshot file into an adapter.
func OpenSnapshotAdapter(path string) (*SnapshotAdapter, error) {
	provider, records, err := LoadSnapshot(path)
	if err != nil {
		return nil, err
	}
	return NewSnapshotAdapter(provider, records), nil
}

func (a *SnapshotAdapter) Name() string {
	return a.name
}

// FetchByID returns the snapshot record for id, or ErrNotFound.
func (a *SnapshotAdapter) FetchByID(ctx context.Context, id string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	record, ok := a.records[id]
	if !ok {
		return nil, Wrap(ErrNotFound, a.name, "fetch", "id "+id, nil)
	}
	return record, nil
}
