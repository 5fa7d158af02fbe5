package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const entityColumns = "id, title, title_key, media_type, description, status, episodes, chapters, volumes, genres_json, cover_url, score, rank, popularity, year, source_provider, relations_json, protected_json, update_available, enriched_at, created_at, updated_at"

func scanEntity(scanner interface{ Scan(dest ...any) error }) (*Entity, error) {
	var (
		id              int64
		title           string
		titleKey        sql.NullString
		mediaType       sql.NullString
		description     sql.NullString
		status          sql.NullString
		episodes        sql.NullInt64
		chapters        sql.NullInt64
		volumes         sql.NullInt64
		genresJSON      sql.NullString
		coverURL        sql.NullString
		score           sql.NullFloat64
		rank            sql.NullInt64
		popularity      sql.NullInt64
		year            sql.NullInt64
		sourceProvider  sql.NullString
		relationsJSON   sql.NullString
		protectedJSON   sql.NullString
		updateAvailable sql.NullInt64
		enrichedRaw     sql.NullString
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&title,
		&titleKey,
		&mediaType,
		&description,
		&status,
		&episodes,
		&chapters,
		&volumes,
		&genresJSON,
		&coverURL,
		&score,
		&rank,
		&popularity,
		&year,
		&sourceProvider,
		&relationsJSON,
		&protectedJSON,
		&updateAvailable,
		&enrichedRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	entity := &Entity{
		ID:              id,
		Title:           title,
		MediaType:       MediaType(mediaType.String),
		Description:     description.String,
		Status:          status.String,
		Episodes:        int(episodes.Int64),
		Chapters:        int(chapters.Int64),
		Volumes:         int(volumes.Int64),
		Genres:          decodeStringList(genresJSON.String),
		CoverURL:        coverURL.String,
		Score:           score.Float64,
		Rank:            int(rank.Int64),
		Popularity:      int(popularity.Int64),
		Year:            int(year.Int64),
		SourceProvider:  sourceProvider.String,
		Relations:       decodeRelations(relationsJSON.String),
		Protected:       DecodeProtectedSet(protectedJSON.String),
		UpdateAvailable: updateAvailable.Int64 != 0,
		ExternalIDs:     make(map[string]string),
		EnrichedAt:      parseTimePtr(enrichedRaw),
	}
	if ts := parseTimePtr(createdRaw); ts != nil {
		entity.CreatedAt = *ts
	}
	if ts := parseTimePtr(updatedRaw); ts != nil {
		entity.UpdatedAt = *ts
	}
	return entity, nil
}

func parseTimePtr(raw sql.NullString) *time.Time {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339Nano, raw.String)
	if err != nil {
		return nil
	}
	return &ts
}

func formatTimePtr(ts *time.Time) any {
	if ts == nil {
		return nil
	}
	return ts.UTC().Format(time.RFC3339Nano)
}

func encodeStringList(values []string) string {
	if len(values) == 0 {
		return ""
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return ""
	}
	return string(raw)
}

func decodeStringList(raw string) []string {
	if raw == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil
	}
	return values
}

func encodeRelations(relations map[Relation]ExternalRef) string {
	if len(relations) == 0 {
		return ""
	}
	out := make(map[string]string, len(relations))
	for kind, ref := range relations {
		if ref.IsZero() {
			continue
		}
		out[string(kind)] = ref.String()
	}
	if len(out) == 0 {
		return ""
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return ""
	}
	return string(raw)
}

func decodeRelations(raw string) map[Relation]ExternalRef {
	relations := make(map[Relation]ExternalRef)
	if raw == "" {
		return relations
	}
	var stored map[string]string
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return relations
	}
	for kind, value := range stored {
		if ref, ok := ParseExternalRef(value); ok {
			relations[Relation(kind)] = ref
		}
	}
	return relations
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// Insert persists a new entity together with its external ids and
// alternate titles in one transaction.
func (s *Store) Insert(ctx context.Context, entity *Entity) (*Entity, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO entities (
            title, title_key, media_type, description, status,
            episodes, chapters, volumes, genres_json, cover_url,
            score, rank, popularity, year, source_provider,
            relations_json, protected_json, update_available,
            enriched_at, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entity.Title,
			entity.TitleKey(),
			string(entity.MediaType),
			entity.Description,
			entity.Status,
			entity.Episodes,
			entity.Chapters,
			entity.Volumes,
			encodeStringList(entity.Genres),
			entity.CoverURL,
			entity.Score,
			entity.Rank,
			entity.Popularity,
			entity.Year,
			entity.SourceProvider,
			encodeRelations(entity.Relations),
			EncodeProtectedSet(entity.Protected),
			boolToInt(entity.UpdateAvailable),
			formatTimePtr(entity.EnrichedAt),
			timestamp,
			timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert entity: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		if err := writeExternalIDs(ctx, tx, id, entity.ExternalIDs); err != nil {
			return err
		}
		return replaceAltTitles(ctx, tx, id, entity)
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Save persists the full state of an existing entity in one transaction.
// External ids are fill-only at the schema level: an INSERT OR IGNORE can
// add a provider mapping but never replace one.
func (s *Store) Save(ctx context.Context, entity *Entity) error {
	if entity.ID == 0 {
		return errors.New("save entity: missing id")
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE entities SET
            title = ?, title_key = ?, media_type = ?, description = ?, status = ?,
            episodes = ?, chapters = ?, volumes = ?, genres_json = ?, cover_url = ?,
            score = ?, rank = ?, popularity = ?, year = ?, source_provider = ?,
            relations_json = ?, protected_json = ?, update_available = ?,
            enriched_at = ?, updated_at = ?
        WHERE id = ?`,
			entity.Title,
			entity.TitleKey(),
			string(entity.MediaType),
			entity.Description,
			entity.Status,
			entity.Episodes,
			entity.Chapters,
			entity.Volumes,
			encodeStringList(entity.Genres),
			entity.CoverURL,
			entity.Score,
			entity.Rank,
			entity.Popularity,
			entity.Year,
			entity.SourceProvider,
			encodeRelations(entity.Relations),
			EncodeProtectedSet(entity.Protected),
			boolToInt(entity.UpdateAvailable),
			formatTimePtr(entity.EnrichedAt),
			timestamp,
			entity.ID,
		)
		if err != nil {
			return fmt.Errorf("update entity: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("update entity %d: not found", entity.ID)
		}
		if err := writeExternalIDs(ctx, tx, entity.ID, entity.ExternalIDs); err != nil {
			return err
		}
		return replaceAltTitles(ctx, tx, entity.ID, entity)
	})
}

func writeExternalIDs(ctx context.Context, tx *sql.Tx, entityID int64, ids map[string]string) error {
	for provider, externalID := range ids {
		if provider == "" || externalID == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO entity_external_ids (entity_id, provider, external_id) VALUES (?, ?, ?)`,
			entityID, provider, externalID,
		); err != nil {
			return fmt.Errorf("insert external id %s:%s: %w", provider, externalID, err)
		}
	}
	return nil
}

func replaceAltTitles(ctx context.Context, tx *sql.Tx, entityID int64, entity *Entity) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM entity_alt_titles WHERE entity_id = ?`, entityID); err != nil {
		return fmt.Errorf("clear alt titles: %w", err)
	}
	for _, title := range entity.AltTitles {
		key := normalizeAltKey(title)
		if key == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO entity_alt_titles (entity_id, title, title_key) VALUES (?, ?, ?)`,
			entityID, title, key,
		); err != nil {
			return fmt.Errorf("insert alt title %q: %w", title, err)
		}
	}
	return nil
}

// GetByID fetches an entity by identifier, or nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*Entity, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE id = ?`, id)
	entity, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entity: %w", err)
	}
	if err := s.loadAttachments(ctx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// FindByExternalID returns the entity holding a provider id, or nil.
func (s *Store) FindByExternalID(ctx context.Context, provider, externalID string) (*Entity, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT entity_id FROM entity_external_ids WHERE provider = ? AND external_id = ?`,
		provider, externalID,
	)
	var id int64
	err := row.Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by external id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *Store) loadAttachments(ctx context.Context, entity *Entity) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT provider, external_id FROM entity_external_ids WHERE entity_id = ? ORDER BY provider`,
		entity.ID,
	)
	if err != nil {
		return fmt.Errorf("load external ids: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var provider, externalID string
		if err := rows.Scan(&provider, &externalID); err != nil {
			return fmt.Errorf("scan external id: %w", err)
		}
		entity.ExternalIDs[provider] = externalID
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate external ids: %w", err)
	}

	altRows, err := s.db.QueryContext(ctx,
		`SELECT title FROM entity_alt_titles WHERE entity_id = ? ORDER BY title_key`,
		entity.ID,
	)
	if err != nil {
		return fmt.Errorf("load alt titles: %w", err)
	}
	defer altRows.Close()
	entity.AltTitles = entity.AltTitles[:0]
	for altRows.Next() {
		var title string
		if err := altRows.Scan(&title); err != nil {
			return fmt.Errorf("scan alt title: %w", err)
		}
		entity.AltTitles = append(entity.AltTitles, title)
	}
	if err := altRows.Err(); err != nil {
		return fmt.Errorf("iterate alt titles: %w", err)
	}
	return nil
}

// List returns all entities ordered by id.
func (s *Store) List(ctx context.Context) ([]*Entity, error) {
	return s.listWhere(ctx, "", nil)
}

// ListWithExternalIDs returns entities holding at least one provider id,
// ordered by id. This is the enrichment worklist.
func (s *Store) ListWithExternalIDs(ctx context.Context) ([]*Entity, error) {
	return s.listWhere(ctx,
		"WHERE EXISTS (SELECT 1 FROM entity_external_ids x WHERE x.entity_id = entities.id)", nil)
}

func (s *Store) listWhere(ctx context.Context, where string, args []any) ([]*Entity, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + entityColumns + ` FROM entities ` + where + ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	var entities []*Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	for _, entity := range entities {
		if err := s.loadAttachments(ctx, entity); err != nil {
			return nil, err
		}
	}
	return entities, nil
}

// TitleEntry is one row of the title index used for matching.
type TitleEntry struct {
	EntityID  int64
	Title     string
	TitleKey  string
	MediaType MediaType
	Alt       bool
}

// TitleEntries returns the primary and alternate title keys of every
// entity, for building an in-memory matching index.
func (s *Store) TitleEntries(ctx context.Context) ([]TitleEntry, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, title, title_key, media_type, 0 FROM entities
        UNION ALL
        SELECT a.entity_id, a.title, a.title_key, e.media_type, 1
        FROM entity_alt_titles a JOIN entities e ON e.id = a.entity_id
        ORDER BY 1, 5`)
	if err != nil {
		return nil, fmt.Errorf("list title entries: %w", err)
	}
	defer rows.Close()

	var entries []TitleEntry
	for rows.Next() {
		var (
			entry TitleEntry
			mt    sql.NullString
			alt   int
		)
		if err := rows.Scan(&entry.EntityID, &entry.Title, &entry.TitleKey, &mt, &alt); err != nil {
			return nil, fmt.Errorf("scan title entry: %w", err)
		}
		entry.MediaType = MediaType(mt.String)
		entry.Alt = alt != 0
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate title entries: %w", err)
	}
	return entries, nil
}

// ExternalIDCounts returns the number of provider ids per entity, for
// match tie-breaking.
func (s *Store) ExternalIDCounts(ctx context.Context) (map[int64]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT entity_id, COUNT(*) FROM entity_external_ids GROUP BY entity_id`)
	if err != nil {
		return nil, fmt.Errorf("count external ids: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var (
			id    int64
			count int
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("scan external id count: %w", err)
		}
		counts[id] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate external id counts: %w", err)
	}
	return counts, nil
}

// MarkEnriched stamps the entity's enrichment time.
func (s *Store) MarkEnriched(ctx context.Context, id int64, at time.Time) error {
	_, err := s.execWithRetry(ctx,
		`UPDATE entities SET enriched_at = ?, updated_at = ? WHERE id = ?`,
		at.UTC().Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark enriched: %w", err)
	}
	return nil
}

// ClearUpdateFlag resets the update-available marker once the operator has
// acknowledged it.
func (s *Store) ClearUpdateFlag(ctx context.Context, id int64) error {
	_, err := s.execWithRetry(ctx,
		`UPDATE entities SET update_available = 0, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("clear update flag: %w", err)
	}
	return nil
}

// Summary aggregates catalog counts for status displays.
type Summary struct {
	Total           int
	Enriched        int
	UpdateAvailable int
	ExternalIDs     int
}

// Summarize computes catalog counts.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	ctx = ensureContext(ctx)
	var summary Summary
	err := s.db.QueryRowContext(ctx, `
        SELECT COUNT(*),
               COALESCE(SUM(CASE WHEN enriched_at IS NOT NULL THEN 1 ELSE 0 END), 0),
               COALESCE(SUM(update_available), 0)
        FROM entities`).Scan(&summary.Total, &summary.Enriched, &summary.UpdateAvailable)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize entities: %w", err)
	}
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entity_external_ids`).Scan(&summary.ExternalIDs)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize external ids: %w", err)
	}
	return summary, nil
}
