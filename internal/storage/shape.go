package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"canvas/internal/domain"
)

const shapeColumns = `id, type, x_offset, y_offset, width, height, min_width, min_height, max_width, max_height,
	z_index, is_instance_child, page_id, title, description, subtype, content, style_json, created_at, updated_at`

// ShapeStore implements domain.ShapeStore on SQL.
type ShapeStore struct {
	db *DB
}

func NewShapeStore(db *DB) *ShapeStore {
	return &ShapeStore{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

func scanShape(row scanner) (domain.Shape, error) {
	var (
		s             domain.Shape
		maxW, maxH    sql.NullFloat64
		pageID        sql.NullString
		styleJSON     string
		instanceChild int
		shapeType     string
	)
	err := row.Scan(&s.ID, &shapeType, &s.XOffset, &s.YOffset, &s.Width, &s.Height, &s.MinWidth, &s.MinHeight,
		&maxW, &maxH, &s.ZIndex, &instanceChild, &pageID, &s.Title, &s.Description, &s.Subtype, &s.Content,
		&styleJSON, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return s, err
	}
	s.Type = domain.ShapeType(shapeType)
	s.IsInstanceChild = instanceChild != 0
	s.PageID = pageID.String
	if maxW.Valid {
		s.MaxWidth = domain.Float(maxW.Float64)
	}
	if maxH.Valid {
		s.MaxHeight = domain.Float(maxH.Float64)
	}
	if styleJSON != "" && styleJSON != "{}" {
		if err := json.Unmarshal([]byte(styleJSON), &s.Style); err != nil {
			return s, fmt.Errorf("decode style of %s: %w", s.ID, err)
		}
	}
	return s, nil
}

func shapeArgs(s domain.Shape) ([]any, error) {
	style := "{}"
	if len(s.Style) > 0 {
		data, err := json.Marshal(s.Style)
		if err != nil {
			return nil, fmt.Errorf("encode style: %w", err)
		}
		style = string(data)
	}
	return []any{
		s.Type, s.XOffset, s.YOffset, s.Width, s.Height, s.MinWidth, s.MinHeight,
		nullFloat(s.MaxWidth), nullFloat(s.MaxHeight), s.ZIndex, boolInt(s.IsInstanceChild),
		nullString(s.PageID), s.Title, s.Description, s.Subtype, s.Content, style,
	}, nil
}

func (s *ShapeStore) insert(ex execer, sh *domain.Shape) error {
	if err := sh.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	sh.CreatedAt, sh.UpdatedAt = now, now

	var pos int
	if err := ex.QueryRow(`SELECT COALESCE(MAX(position), 0) FROM shapes`).Scan(&pos); err != nil {
		return fmt.Errorf("next position: %w", err)
	}
	args, err := shapeArgs(*sh)
	if err != nil {
		return err
	}
	args = append([]any{sh.ID}, args...)
	args = append(args, pos+1, sh.CreatedAt, sh.UpdatedAt)
	_, err = ex.Exec(s.db.q(`INSERT INTO shapes (id, type, x_offset, y_offset, width, height, min_width, min_height,
		max_width, max_height, z_index, is_instance_child, page_id, title, description, subtype, content, style_json,
		position, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`), args...)
	if err != nil {
		return fmt.Errorf("insert shape %s: %w", sh.ID, err)
	}
	return nil
}

func (s *ShapeStore) CreateShape(sh *domain.Shape) error {
	if sh.IsPage() {
		sh.PageID = ""
	}
	return s.insert(s.db.Conn(), sh)
}

func (s *ShapeStore) get(ex execer, id string) (*domain.Shape, error) {
	sh, err := scanShape(ex.QueryRow(s.db.q(`SELECT `+shapeColumns+` FROM shapes WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("shape %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get shape: %w", err)
	}
	return &sh, nil
}

func (s *ShapeStore) GetShape(id string) (*domain.Shape, error) {
	return s.get(s.db.Conn(), id)
}

// ListShapes returns every shape in insertion order.
func (s *ShapeStore) ListShapes() ([]domain.Shape, error) {
	rows, err := s.db.Conn().Query(`SELECT ` + shapeColumns + ` FROM shapes ORDER BY position ASC, created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shapes := []domain.Shape{}
	for rows.Next() {
		sh, err := scanShape(rows)
		if err != nil {
			return nil, err
		}
		shapes = append(shapes, sh)
	}
	return shapes, rows.Err()
}

func (s *ShapeStore) update(ex execer, id string, f domain.Fields) (*domain.Shape, error) {
	sh, err := s.get(ex, id)
	if err != nil {
		return nil, err
	}
	f.ApplyTo(sh)
	if sh.IsPage() {
		sh.PageID = ""
	}
	if err := sh.Validate(); err != nil {
		return nil, err
	}
	sh.UpdatedAt = time.Now().UTC()

	args, err := shapeArgs(*sh)
	if err != nil {
		return nil, err
	}
	args = append(args, sh.UpdatedAt, sh.ID)
	_, err = ex.Exec(s.db.q(`UPDATE shapes SET type = ?, x_offset = ?, y_offset = ?, width = ?, height = ?,
		min_width = ?, min_height = ?, max_width = ?, max_height = ?, z_index = ?, is_instance_child = ?, page_id = ?,
		title = ?, description = ?, subtype = ?, content = ?, style_json = ?, updated_at = ? WHERE id = ?`), args...)
	if err != nil {
		return nil, fmt.Errorf("update shape %s: %w", id, err)
	}
	return sh, nil
}

func (s *ShapeStore) UpdateShape(id string, f domain.Fields) (*domain.Shape, error) {
	return s.update(s.db.Conn(), id, f)
}

// BatchUpdate applies every update in one transaction. A missing or invalid
// item does not abort the others; its error is reported in its outcome.
// Any other error aborts the whole batch.
func (s *ShapeStore) BatchUpdate(updates []domain.ShapeUpdate) ([]domain.BatchOutcome, error) {
	tx, err := s.db.Conn().Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	results := make([]domain.BatchOutcome, 0, len(updates))
	for _, u := range updates {
		_, err := s.update(tx, u.ShapeID, u.Fields)
		if err != nil && !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrInvalidShape) {
			return nil, err
		}
		results = append(results, domain.BatchOutcome{ShapeID: u.ShapeID, Err: err})
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch update: %w", err)
	}
	return results, nil
}

func (s *ShapeStore) remove(ex execer, id string) error {
	res, err := ex.Exec(s.db.q(`DELETE FROM shapes WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete shape %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("shape %s: %w", id, domain.ErrNotFound)
	}
	if _, err := ex.Exec(s.db.q(`UPDATE shapes SET page_id = NULL WHERE page_id = ?`), id); err != nil {
		return fmt.Errorf("orphan children of %s: %w", id, err)
	}
	if _, err := ex.Exec(s.db.q(`DELETE FROM multipage_paths WHERE shape_start_id = ? OR shape_end_id = ?`), id, id); err != nil {
		return fmt.Errorf("delete paths of %s: %w", id, err)
	}
	return nil
}

// DeleteShape removes a shape, orphans its children and drops the paths
// attached to it.
func (s *ShapeStore) DeleteShape(id string) error {
	tx, err := s.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	if err := s.remove(tx, id); err != nil {
		return err
	}
	return tx.Commit()
}

// BatchDelete removes all ids atomically; an unknown id fails the batch.
func (s *ShapeStore) BatchDelete(ids []string) error {
	tx, err := s.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	for _, id := range ids {
		if err := s.remove(tx, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// InsertShapes stores copies atomically and returns them with timestamps.
func (s *ShapeStore) InsertShapes(shapes []domain.Shape) ([]domain.Shape, error) {
	tx, err := s.db.Conn().Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	out := domain.CloneShapes(shapes)
	for i := range out {
		if out[i].IsPage() {
			out[i].PageID = ""
		}
		if err := s.insert(tx, &out[i]); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit copy: %w", err)
	}
	return out, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
