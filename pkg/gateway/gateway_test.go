package gateway

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numgate/numgate/pkg/cache"
	"github.com/numgate/numgate/pkg/domain/lookup"
)

type fakeClient struct {
	responses map[string]fakeResponse
	calls     []string
}

type fakeResponse struct {
	status int
	body   string
	err    error
}

func (f *fakeClient) Get(_ context.Context, url string) (int, []byte, error) {
	f.calls = append(f.calls, url)
	resp, ok := f.responses[url]
	if !ok {
		return 0, nil, errors.New("no route")
	}
	if resp.err != nil {
		return 0, nil, resp.err
	}
	return resp.status, []byte(resp.body), nil
}

func newTestGateway(client *fakeClient) (*Gateway, *cache.MemoryCache) {
	c := cache.NewMemoryCache()
	logger := logrus.New()
	g := New(Config{
		Sources: []SourceConfig{
			{Name: "primary", URL: "https://primary/num?q="},
			{Name: "secondary", URL: "https://secondary/num?q="},
		},
		CacheTTL:    5 * time.Minute,
		StripFields: DefaultStripFields,
	}, client, c, logger)
	return g, c
}

func TestGateway_PrimarySuccess(t *testing.T) {
	client := &fakeClient{responses: map[string]fakeResponse{
		"https://primary/num?q=9798423774": {
			status: http.StatusOK,
			body:   `{"result": [{"name": "Jordan", "circle": "Bihar", "owner": "@somechannel"}]}`,
		},
	}}
	g, _ := newTestGateway(client)

	res, err := g.Fetch(context.Background(), "9798423774")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, []lookup.Field{
		{Key: "name", Value: "Jordan"},
		{Key: "circle", Value: "Bihar"},
	}, res.Records[0].Fields, "ownership metadata must be stripped")
	assert.Len(t, client.calls, 1, "secondary must not be called when primary succeeds")
}

func TestGateway_FallsBackToSecondary(t *testing.T) {
	client := &fakeClient{responses: map[string]fakeResponse{
		"https://primary/num?q=9798423774":   {err: errors.New("timeout")},
		"https://secondary/num?q=9798423774": {status: http.StatusOK, body: `{"name": "Jordan"}`},
	}}
	g, _ := newTestGateway(client)

	res, err := g.Fetch(context.Background(), "9798423774")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "Jordan", res.Records[0].Fields[0].Value)
	assert.Len(t, client.calls, 2)
}

func TestGateway_BothTransportFailures(t *testing.T) {
	client := &fakeClient{responses: map[string]fakeResponse{
		"https://primary/num?q=9798423774":   {err: errors.New("timeout")},
		"https://secondary/num?q=9798423774": {status: http.StatusBadGateway, body: "oops"},
	}}
	g, _ := newTestGateway(client)

	_, err := g.Fetch(context.Background(), "9798423774")
	require.Error(t, err)
	assert.True(t, lookup.IsTransport(err))
	assert.False(t, lookup.IsNotFound(err))
}

func TestGateway_BothEmptyIsNotFound(t *testing.T) {
	client := &fakeClient{responses: map[string]fakeResponse{
		"https://primary/num?q=9798423774":   {status: http.StatusOK, body: `{"result": []}`},
		"https://secondary/num?q=9798423774": {status: http.StatusOK, body: `{}`},
	}}
	g, _ := newTestGateway(client)

	_, err := g.Fetch(context.Background(), "9798423774")
	require.Error(t, err)
	assert.True(t, lookup.IsNotFound(err))
}

func TestGateway_TransportThenEmptyIsNotFound(t *testing.T) {
	// One source answered, so the search completed even though it was
	// fruitless.
	client := &fakeClient{responses: map[string]fakeResponse{
		"https://primary/num?q=9798423774":   {err: errors.New("connection refused")},
		"https://secondary/num?q=9798423774": {status: http.StatusOK, body: `{"result": []}`},
	}}
	g, _ := newTestGateway(client)

	_, err := g.Fetch(context.Background(), "9798423774")
	require.Error(t, err)
	assert.True(t, lookup.IsNotFound(err))
}

func TestGateway_UnparseableBodyTriggersFallback(t *testing.T) {
	client := &fakeClient{responses: map[string]fakeResponse{
		"https://primary/num?q=9798423774":   {status: http.StatusOK, body: "<html>nope</html>"},
		"https://secondary/num?q=9798423774": {status: http.StatusOK, body: `{"name": "Jordan"}`},
	}}
	g, _ := newTestGateway(client)

	res, err := g.Fetch(context.Background(), "9798423774")
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)
}

func TestGateway_SuccessIsCached(t *testing.T) {
	client := &fakeClient{responses: map[string]fakeResponse{
		"https://primary/num?q=9798423774": {status: http.StatusOK, body: `{"name": "Jordan"}`},
	}}
	g, _ := newTestGateway(client)

	_, err := g.Fetch(context.Background(), "9798423774")
	require.NoError(t, err)

	res, err := g.Fetch(context.Background(), "9798423774")
	require.NoError(t, err)
	assert.Equal(t, "Jordan", res.Records[0].Fields[0].Value)
	assert.Len(t, client.calls, 1, "second fetch must be served from cache")
}

func TestGateway_FailureIsNotCached(t *testing.T) {
	client := &fakeClient{responses: map[string]fakeResponse{}}
	g, c := newTestGateway(client)

	_, err := g.Fetch(context.Background(), "9798423774")
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestNormalize_Shapes(t *testing.T) {
	strip := map[string]struct{}{"owner": {}}

	tests := []struct {
		name string
		body string
		want int // usable records
	}{
		{"wrapped result array", `{"result": [{"name": "A"}, {"name": "B"}]}`, 2},
		{"wrapped data object", `{"data": {"name": "A"}}`, 1},
		{"bare array", `[{"name": "A"}]`, 1},
		{"flat object", `{"name": "A", "age": 30}`, 1},
		{"only stripped fields", `{"owner": "@chan"}`, 0},
		{"empty values dropped", `{"name": "", "father_name": null}`, 0},
		{"scalar body", `"hello"`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := normalize("123", []byte(tt.body), strip)
			assert.Len(t, res.Records, tt.want)
		})
	}
}

func TestNormalize_NumericAndNestedValues(t *testing.T) {
	res := normalize("123", []byte(`{"age": 30, "tags": ["a","b"], "active": true}`), nil)
	require.Len(t, res.Records, 1)
	fields := res.Records[0].Fields
	assert.Equal(t, lookup.Field{Key: "age", Value: "30"}, fields[0])
	assert.Equal(t, lookup.Field{Key: "tags", Value: `["a","b"]`}, fields[1])
	assert.Equal(t, lookup.Field{Key: "active", Value: "true"}, fields[2])
}
