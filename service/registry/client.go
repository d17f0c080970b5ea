package registry

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/nezhahq/sysmon/model"
	"github.com/nezhahq/sysmon/pkg/utils"
)

// ClientLister loads the persisted clients the registry starts from.
type ClientLister interface {
	ListClients(ctx context.Context) ([]model.Client, error)
}

// ClientClass keeps an in-memory view of every known client, sorted by
// last_seen descending.
type ClientClass struct {
	list   map[string]*model.Client
	listMu sync.RWMutex

	sortedList   []*model.Client
	sortedListMu sync.RWMutex
}

func NewClientClass(ctx context.Context, store ClientLister) (*ClientClass, error) {
	cc := &ClientClass{
		list: make(map[string]*model.Client),
	}

	clients, err := store.ListClients(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range clients {
		innerC := c
		cc.list[innerC.ClientID] = &innerC
	}
	cc.sortList()

	return cc, nil
}

// Update stores c unless the registry already holds a newer view of the
// same client.
func (c *ClientClass) Update(client *model.Client) {
	c.listMu.Lock()

	if cur, ok := c.list[client.ClientID]; ok && cur.MetricsCount > client.MetricsCount {
		c.listMu.Unlock()
		return
	}
	innerC := *client
	c.list[client.ClientID] = &innerC

	c.listMu.Unlock()

	c.sortList()
}

func (c *ClientClass) Get(clientID string) (client *model.Client, ok bool) {
	c.listMu.RLock()
	defer c.listMu.RUnlock()

	client, ok = c.list[clientID]
	return
}

func (c *ClientClass) GetSortedList() []*model.Client {
	c.sortedListMu.RLock()
	defer c.sortedListMu.RUnlock()

	return slices.Clone(c.sortedList)
}

func (c *ClientClass) Len() int {
	c.listMu.RLock()
	defer c.listMu.RUnlock()

	return len(c.list)
}

func (c *ClientClass) sortList() {
	c.listMu.RLock()
	defer c.listMu.RUnlock()
	c.sortedListMu.Lock()
	defer c.sortedListMu.Unlock()

	c.sortedList = utils.MapValuesToSlice(c.list)
	slices.SortStableFunc(c.sortedList, func(a, b *model.Client) int {
		if a.LastSeen.Equal(b.LastSeen) {
			return cmp.Compare(a.ClientID, b.ClientID)
		}
		return b.LastSeen.Compare(a.LastSeen)
	})
}
