package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeServer(t *testing.T, count string, handler func(w http.ResponseWriter, n string)) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/prod/number_stores", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "secret" {
			http.Error(w, `{"message":"Forbidden"}`, http.StatusForbidden)
			return
		}
		fmt.Fprint(w, count)
	})
	mux.HandleFunc("/prod/store_details/{n}", func(w http.ResponseWriter, r *http.Request) {
		handler(w, r.PathValue("n"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func storeExtractor(srv *httptest.Server) *StoreAPIExtractor {
	return &StoreAPIExtractor{
		CountURL:         srv.URL + "/prod/number_stores",
		StoreURLTemplate: srv.URL + "/prod/store_details/{store_number}",
		APIKey:           "secret",
		Client:           srv.Client(),
		Concurrency:      3,
	}
}

func TestStoreAPI_NumberOfStores(t *testing.T) {
	srv := storeServer(t, `{"statusCode": 200, "number_stores": 451}`, nil)

	n, err := storeExtractor(srv).NumberOfStores(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 451, n)
}

func TestStoreAPI_NumberOfStores_Forbidden(t *testing.T) {
	srv := storeServer(t, `{}`, nil)
	e := storeExtractor(srv)
	e.APIKey = "wrong"

	_, err := e.NumberOfStores(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestStoreAPI_NumberOfStores_MissingField(t *testing.T) {
	srv := storeServer(t, `{"statusCode": 200}`, nil)
	_, err := storeExtractor(srv).NumberOfStores(context.Background())
	assert.Error(t, err)
}

func TestStoreAPI_Extract(t *testing.T) {
	var calls atomic.Int32
	srv := storeServer(t, `{"number_stores": 6}`, func(w http.ResponseWriter, n string) {
		calls.Add(1)
		switch n {
		case "2":
			http.Error(w, "boom", http.StatusInternalServerError)
		case "3":
			fmt.Fprint(w, `not json`)
		case "5":
			http.NotFound(w, nil)
		default:
			fmt.Fprintf(w, `{"index": %s, "store_code": "S-%s", "lat": null, "staff_numbers": "J78", "extra": {"a": 1}}`, n, n)
		}
	})

	b, err := storeExtractor(srv).Extract(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 6, calls.Load())
	require.Equal(t, 3, b.Len())
	assert.Equal(t, []any{"S-0", "S-1", "S-4"}, b.Column("store_code"))
	assert.Equal(t, 4.0, b.Rows[2]["index"])
	assert.Nil(t, b.Rows[0]["lat"])
	assert.Equal(t, `{"a":1}`, b.Rows[0]["extra"])
	assert.True(t, b.HasColumn("staff_numbers"))
}

func TestStoreAPI_NotFoundEndsRange(t *testing.T) {
	srv := storeServer(t, `{"number_stores": 5}`, func(w http.ResponseWriter, n string) {
		if n == "2" {
			http.NotFound(w, nil)
			return
		}
		fmt.Fprintf(w, `{"store_code": "S-%s"}`, n)
	})

	b, err := storeExtractor(srv).Extract(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{"S-0", "S-1"}, b.Column("store_code"))
}

func TestStoreAPI_StoreURL(t *testing.T) {
	e := &StoreAPIExtractor{StoreURLTemplate: "https://x/prod/store_details/{store_number}"}
	assert.Equal(t, "https://x/prod/store_details/42", e.StoreURL(42))
	assert.False(t, strings.Contains(e.StoreURL(1), "{"))
}
