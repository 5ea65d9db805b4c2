package repository

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/templui/estatedesk/internal/model"
)

var (
	ErrCurrencyNotFound = errors.New("currency not found")
)

type CurrencyRepository interface {
	All() ([]*model.Currency, error)
	ByCode(code string) (*model.Currency, error)
	Default() (*model.Currency, error)
	Upsert(currency *model.Currency) error
	SetDefault(code string) error
}

type currencyRepository struct {
	db *sqlx.DB
}

func NewCurrencyRepository(db *sqlx.DB) CurrencyRepository {
	return &currencyRepository{db: db}
}

// All returns currencies with the default first, then by code.
func (r *currencyRepository) All() ([]*model.Currency, error) {
	currencies := []*model.Currency{}
	query := `SELECT * FROM currencies ORDER BY is_default DESC, code ASC`

	err := r.db.Select(&currencies, query)
	return currencies, err
}

func (r *currencyRepository) ByCode(code string) (*model.Currency, error) {
	currency := &model.Currency{}
	query := `SELECT * FROM currencies WHERE code = $1`

	err := r.db.Get(currency, query, code)
	if err == sql.ErrNoRows {
		return nil, ErrCurrencyNotFound
	}

	return currency, err
}

func (r *currencyRepository) Default() (*model.Currency, error) {
	currency := &model.Currency{}
	query := `SELECT * FROM currencies WHERE is_default = $1 ORDER BY code LIMIT 1`

	err := r.db.Get(currency, query, true)
	if err == sql.ErrNoRows {
		return nil, ErrCurrencyNotFound
	}

	return currency, err
}

func (r *currencyRepository) Upsert(c *model.Currency) error {
	query := `
		INSERT INTO currencies (code, symbol, name, is_default)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (code) DO UPDATE SET symbol = excluded.symbol, name = excluded.name
	`

	_, err := r.db.Exec(query, c.Code, c.Symbol, c.Name, c.IsDefault)
	return err
}

// SetDefault makes code the only default currency.
func (r *currencyRepository) SetDefault(code string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`UPDATE currencies SET is_default = $1 WHERE code = $2`, true, code)
	if err := expectRow(result, err, ErrCurrencyNotFound); err != nil {
		return err
	}

	_, err = tx.Exec(`UPDATE currencies SET is_default = $1 WHERE code != $2`, false, code)
	if err != nil {
		return err
	}

	return tx.Commit()
}
