package credentials

import "github.com/dvcrn/ledgerlink/internal/config"

// Fetcher retrieves raw integration credentials from some store. Fetchers do
// not validate; config.FromRaw does.
type Fetcher interface {
	Fetch() (config.RawCredentials, error)
}

// Load fetches and validates credentials in one step.
func Load(f Fetcher) (config.IntegrationConfig, error) {
	raw, err := f.Fetch()
	if err != nil {
		return config.IntegrationConfig{}, err
	}
	return config.FromRaw(raw)
}

// Saver is implemented by stores that can persist credentials.
type Saver interface {
	Save(config.RawCredentials) error
}
