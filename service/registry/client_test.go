package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nezhahq/sysmon/model"
)

type listerFunc func(ctx context.Context) ([]model.Client, error)

func (f listerFunc) ListClients(ctx context.Context) ([]model.Client, error) { return f(ctx) }

var base = time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)

func ids(clients []*model.Client) []string {
	out := make([]string, 0, len(clients))
	for _, c := range clients {
		out = append(out, c.ClientID)
	}
	return out
}

func TestClientClassLoadAndSort(t *testing.T) {
	cc, err := NewClientClass(context.Background(), listerFunc(func(context.Context) ([]model.Client, error) {
		return []model.Client{
			{ClientID: "b", LastSeen: base, MetricsCount: 1},
			{ClientID: "a", LastSeen: base, MetricsCount: 1},
			{ClientID: "c", LastSeen: base.Add(time.Minute), MetricsCount: 1},
		}, nil
	}))
	if err != nil {
		t.Fatal(err)
	}

	got := ids(cc.GetSortedList())
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	cc.Update(&model.Client{ClientID: "b", LastSeen: base.Add(time.Hour), MetricsCount: 2})
	if got := ids(cc.GetSortedList()); got[0] != "b" {
		t.Errorf("expected updated client first, got %v", got)
	}
	if cc.Len() != 3 || len(cc.GetSortedList()) != 3 {
		t.Errorf("expected 3 clients, got %d", cc.Len())
	}
}

func TestClientClassUpdateIsMonotonic(t *testing.T) {
	cc, err := NewClientClass(context.Background(), listerFunc(func(context.Context) ([]model.Client, error) {
		return nil, nil
	}))
	if err != nil {
		t.Fatal(err)
	}

	cc.Update(&model.Client{ClientID: "a", LastSeen: base.Add(time.Hour), MetricsCount: 5})
	cc.Update(&model.Client{ClientID: "a", LastSeen: base, MetricsCount: 4})

	c, ok := cc.Get("a")
	if !ok || c.MetricsCount != 5 {
		t.Errorf("stale update must be ignored, got %+v", c)
	}
	if _, ok := cc.Get("missing"); ok {
		t.Error("expected missing client")
	}
}

func TestClientClassLoadError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewClientClass(context.Background(), listerFunc(func(context.Context) ([]model.Client, error) {
		return nil, boom
	}))
	if !errors.Is(err, boom) {
		t.Errorf("expected load error, got %v", err)
	}
}

func TestClientClassConcurrentUpdates(t *testing.T) {
	cc, _ := NewClientClass(context.Background(), listerFunc(func(context.Context) ([]model.Client, error) {
		return nil, nil
	}))

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cc.Update(&model.Client{ClientID: "a", LastSeen: base.Add(time.Duration(i) * time.Second), MetricsCount: uint64(i + 1)})
			cc.GetSortedList()
		}()
	}
	wg.Wait()

	if c, _ := cc.Get("a"); c.MetricsCount != 50 {
		t.Errorf("expected the highest count to win, got %d", c.MetricsCount)
	}
}
