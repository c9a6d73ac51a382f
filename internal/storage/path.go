package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"canvas/internal/domain"
)

const pathColumns = `id, shape_start_id, shape_start_handle_type, shape_end_id, shape_end_handle_type,
	direction, page_exclude_json, created_at, updated_at`

// PathStore implements domain.PathStore on SQL.
type PathStore struct {
	db *DB
}

func NewPathStore(db *DB) *PathStore {
	return &PathStore{db: db}
}

func scanPath(row scanner) (domain.Path, error) {
	var (
		p                    domain.Path
		startType, endType   string
		direction, excludeJS string
	)
	err := row.Scan(&p.ID, &p.ShapeStartID, &startType, &p.ShapeEndID, &endType, &direction, &excludeJS,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	p.ShapeStartHandleType = domain.HandleType(startType)
	p.ShapeEndHandleType = domain.HandleType(endType)
	p.Direction = domain.Direction(direction)
	p.PageExcludeList = []string{}
	if err := json.Unmarshal([]byte(excludeJS), &p.PageExcludeList); err != nil {
		return p, fmt.Errorf("decode exclude list of %s: %w", p.ID, err)
	}
	return p, nil
}

func excludeJSON(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	return string(data), err
}

// CreatePath inserts p, replacing any path that starts at the same shape.
func (s *PathStore) CreatePath(p *domain.Path) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.PageExcludeList == nil {
		p.PageExcludeList = []string{}
	}
	exclude, err := excludeJSON(p.PageExcludeList)
	if err != nil {
		return fmt.Errorf("encode exclude list: %w", err)
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	tx, err := s.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(s.db.q(`DELETE FROM multipage_paths WHERE shape_start_id = ?`), p.ShapeStartID); err != nil {
		return fmt.Errorf("replace path from %s: %w", p.ShapeStartID, err)
	}
	_, err = tx.Exec(s.db.q(`INSERT INTO multipage_paths (`+pathColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID, p.ShapeStartID, p.ShapeStartHandleType, p.ShapeEndID, p.ShapeEndHandleType, p.Direction, exclude,
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert path: %w", err)
	}
	return tx.Commit()
}

func (s *PathStore) GetPath(id string) (*domain.Path, error) {
	p, err := scanPath(s.db.Conn().QueryRow(s.db.q(`SELECT `+pathColumns+` FROM multipage_paths WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("path %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get path: %w", err)
	}
	return &p, nil
}

func (s *PathStore) ListPaths() ([]domain.Path, error) {
	rows, err := s.db.Conn().Query(`SELECT ` + pathColumns + ` FROM multipage_paths ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	paths := []domain.Path{}
	for rows.Next() {
		p, err := scanPath(rows)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

func (s *PathStore) UpdatePath(id string, u domain.PathUpdate) (*domain.Path, error) {
	p, err := s.GetPath(id)
	if err != nil {
		return nil, err
	}
	if u.ShapeEndID != nil {
		p.ShapeEndID = *u.ShapeEndID
	}
	if u.ShapeEndHandleType != nil {
		p.ShapeEndHandleType = *u.ShapeEndHandleType
	}
	if u.Direction != nil {
		p.Direction = *u.Direction
	}
	if u.PageExcludeList != nil {
		p.PageExcludeList = u.PageExcludeList
	}
	exclude, err := excludeJSON(p.PageExcludeList)
	if err != nil {
		return nil, fmt.Errorf("encode exclude list: %w", err)
	}
	p.UpdatedAt = time.Now().UTC()

	_, err = s.db.Conn().Exec(s.db.q(`UPDATE multipage_paths SET shape_end_id = ?, shape_end_handle_type = ?,
		direction = ?, page_exclude_json = ?, updated_at = ? WHERE id = ?`),
		p.ShapeEndID, p.ShapeEndHandleType, p.Direction, exclude, p.UpdatedAt, p.ID)
	if err != nil {
		return nil, fmt.Errorf("update path %s: %w", id, err)
	}
	return p, nil
}

func (s *PathStore) DeletePath(id string) error {
	res, err := s.db.Conn().Exec(s.db.q(`DELETE FROM multipage_paths WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete path %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("path %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
