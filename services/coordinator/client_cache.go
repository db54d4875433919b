package coordinator

import (
	"time"

	"bcnn-backend/lib/scrapers/bcnn"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const portalBaseUrl = "https://lk.bcnn.ru"

// ClientCache hands out one portal client per login. Accounts under
// the same login share a client, and with it one portal session, so a
// household with several accounts doesn't log in once per account.
type ClientCache struct {
	cache *expirable.LRU[string, *bcnn.Client]
}

func NewClientCache() ClientCache {
	return ClientCache{
		cache: expirable.NewLRU[string, *bcnn.Client](64, nil, time.Minute*15),
	}
}

func (c ClientCache) Get(login, password string) (*bcnn.Client, error) {
	cached, hit := c.cache.Get(login)
	if hit {
		return cached, nil
	}

	client, err := bcnn.NewClient(bcnn.ClientOptions{
		BaseUrl:  portalBaseUrl,
		Login:    login,
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	c.cache.Add(login, client)
	return client, nil
}
