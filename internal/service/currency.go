package service

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/templui/estatedesk/internal/model"
	"github.com/templui/estatedesk/internal/repository"
	"gopkg.in/yaml.v3"
)

//go:embed currencies.yaml
var DefaultCurrencyCatalog []byte

var currencyCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)

type CurrencyService struct {
	currencyRepo repository.CurrencyRepository
}

func NewCurrencyService(currencyRepo repository.CurrencyRepository) *CurrencyService {
	return &CurrencyService{currencyRepo: currencyRepo}
}

// List returns all currencies, default first, then by code.
func (s *CurrencyService) List() ([]*model.Currency, error) {
	return s.currencyRepo.All()
}

type currencyCatalog struct {
	Currencies []*model.Currency `yaml:"currencies"`
}

// ParseCurrencyCatalog reads a YAML catalog and checks that codes are ISO
// 4217 shaped, unique, and that exactly one entry is the default.
func ParseCurrencyCatalog(data []byte) ([]*model.Currency, error) {
	var catalog currencyCatalog
	err := yaml.Unmarshal(data, &catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to parse currency catalog: %w", err)
	}
	if len(catalog.Currencies) == 0 {
		return nil, errors.New("currency catalog is empty")
	}

	seen := map[string]bool{}
	defaults := 0
	for _, c := range catalog.Currencies {
		c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
		if !currencyCodePattern.MatchString(c.Code) {
			return nil, fmt.Errorf("invalid currency code %q", c.Code)
		}
		if seen[c.Code] {
			return nil, fmt.Errorf("duplicate currency code %s", c.Code)
		}
		seen[c.Code] = true
		if c.IsDefault {
			defaults++
		}
	}
	if defaults != 1 {
		return nil, fmt.Errorf("currency catalog needs exactly one default, found %d", defaults)
	}

	return catalog.Currencies, nil
}

// Seed upserts the catalog and makes its default the only default.
func (s *CurrencyService) Seed(currencies []*model.Currency) error {
	var def string
	for _, c := range currencies {
		err := s.currencyRepo.Upsert(c)
		if err != nil {
			return fmt.Errorf("failed to upsert currency %s: %w", c.Code, err)
		}
		if c.IsDefault {
			def = c.Code
		}
	}

	if def != "" {
		err := s.currencyRepo.SetDefault(def)
		if err != nil {
			return fmt.Errorf("failed to set default currency: %w", err)
		}
	}

	slog.Info("currencies seeded", "count", len(currencies), "default", def)
	return nil
}

// EnsureSeeded loads the built-in catalog into an empty currency table.
func (s *CurrencyService) EnsureSeeded() error {
	existing, err := s.currencyRepo.All()
	if err != nil {
		return fmt.Errorf("failed to list currencies: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	currencies, err := ParseCurrencyCatalog(DefaultCurrencyCatalog)
	if err != nil {
		return err
	}
	return s.Seed(currencies)
}
