package data

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/contactkeval/option-iv/internal/logger"
)

// localFileDataProvider implements Provider from a local CSV file with header
// symbol,spot,strike,expiry,rate,price.
type localFileDataProvider struct {
	path      string
	secondary Provider
}

// NewLocalCSVProvider convenience constructor.
func NewLocalCSVProvider(path string, secondary Provider) *localFileDataProvider {
	return &localFileDataProvider{path: path, secondary: secondary}
}

func (localFileDataProv *localFileDataProvider) Secondary() Provider {
	return localFileDataProv.secondary
}

func (localFileDataProv *localFileDataProvider) GetQuotes(ctx context.Context) ([]OptionQuote, error) {
	f, err := os.Open(localFileDataProv.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debugf("quote file %s not found", localFileDataProv.path)
		}
		return nil, fmt.Errorf("open quotes file: %w", err)
	}
	defer f.Close()

	var rows []OptionQuote
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("read quotes csv %s: %w", localFileDataProv.path, err)
	}

	logger.Debugf("loaded %d quotes from %s", len(rows), localFileDataProv.path)
	return rows, ctx.Err()
}
