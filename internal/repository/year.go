package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/yarukoto/yarukoto/internal/model"
)

var (
	ErrYearNotFound = errors.New("year not found")
)

type YearRepository interface {
	// Upsert creates the year container if it does not exist and returns it.
	// Safe to call repeatedly; an existing container is returned untouched.
	Upsert(userID string, year int) (*model.Year, error)
	ByYear(userID string, year int) (*model.Year, error)
	Years(userID string) ([]*model.Year, error)
	UpdateMemo(userID string, year int, memo string) error
}

type yearRepository struct {
	db *sqlx.DB
}

func NewYearRepository(db *sqlx.DB) YearRepository {
	return &yearRepository{db: db}
}

func (r *yearRepository) Upsert(userID string, year int) (*model.Year, error) {
	query := `INSERT INTO years (id, user_id, year, retrospective_memo, created_at)
	          VALUES ($1, $2, $3, '', $4)
	          ON CONFLICT (user_id, year) DO NOTHING`

	_, err := r.db.Exec(query, uuid.New().String(), userID, year, time.Now())
	if err != nil {
		return nil, err
	}

	return r.ByYear(userID, year)
}

func (r *yearRepository) ByYear(userID string, year int) (*model.Year, error) {
	y := &model.Year{}
	query := `SELECT * FROM years WHERE user_id = $1 AND year = $2`

	err := r.db.Get(y, query, userID, year)
	if err == sql.ErrNoRows {
		return nil, ErrYearNotFound
	}

	return y, err
}

func (r *yearRepository) Years(userID string) ([]*model.Year, error) {
	var years []*model.Year
	query := `SELECT * FROM years WHERE user_id = $1 ORDER BY year DESC`

	err := r.db.Select(&years, query, userID)
	if err != nil {
		return nil, err
	}

	return years, nil
}

func (r *yearRepository) UpdateMemo(userID string, year int, memo string) error {
	query := `UPDATE years SET retrospective_memo = $1 WHERE user_id = $2 AND year = $3`

	result, err := r.db.Exec(query, memo, userID, year)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrYearNotFound
	}

	return nil
}
