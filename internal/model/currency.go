package model

type Currency struct {
	Code      string `db:"code" json:"code" yaml:"code"`
	Symbol    string `db:"symbol" json:"symbol" yaml:"symbol"`
	Name      string `db:"name" json:"name" yaml:"name"`
	IsDefault bool   `db:"is_default" json:"is_default" yaml:"default"`
}
