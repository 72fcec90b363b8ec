package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// line builds a text line from (x, text) pairs with a 5pt glyph width.
func line(parts ...any) textLine {
	var l textLine
	for i := 0; i < len(parts); i += 2 {
		x := parts[i].(float64)
		for j, r := range parts[i+1].(string) {
			l = append(l, fragment{X: x + float64(j)*5, W: 5, S: string(r)})
		}
	}
	return l
}

func TestTextLine_Words(t *testing.T) {
	l := line(10.0, "VISA", 40.0, "16", 60.0, "digit")
	words := l.words()

	require.Len(t, words, 3)
	assert.Equal(t, "VISA", words[0].S)
	assert.Equal(t, 10.0, words[0].X)
	assert.Equal(t, "16", words[1].S)
	assert.Equal(t, "digit", words[2].S)
}

func TestTextLine_WordsSplitOnSpace(t *testing.T) {
	l := textLine{
		{X: 0, W: 5, S: "a"},
		{X: 5, W: 0, S: " "},
		{X: 5, W: 5, S: "b"},
	}
	words := l.words()
	require.Len(t, words, 2)
	assert.Equal(t, "a", words[0].S)
	assert.Equal(t, "b", words[1].S)
}

func TestLayoutTable(t *testing.T) {
	header := line(10.0, "card_number", 150.0, "expiry_date", 250.0, "card_provider", 400.0, "date_payment_confirmed")
	lines := []textLine{
		line(10.0, "Card", 60.0, "Details"),
		header,
		line(10.0, "30060773296197", 150.0, "09/26", 250.0, "Diners", 290.0, "Club", 320.0, "/", 330.0, "Carte", 360.0, "Blanche", 400.0, "2015-11-25"),
		line(10.0, "4971858637664481", 150.0, "09/26", 250.0, "VISA", 280.0, "16", 295.0, "digit", 400.0, "2001-06-18"),
		header,
		line(10.0, "??3506", 250.0, "Maestro", 400.0, "2022-02-02"),
	}

	b, err := layoutTable(lines, CardColumns)
	require.NoError(t, err)

	assert.Equal(t, CardColumns, b.Columns)
	require.Equal(t, 3, b.Len())
	assert.Equal(t, "30060773296197", b.Rows[0]["card_number"])
	assert.Equal(t, "Diners Club / Carte Blanche", b.Rows[0]["card_provider"])
	assert.Equal(t, "VISA 16 digit", b.Rows[1]["card_provider"])
	assert.Equal(t, "2001-06-18", b.Rows[1]["date_payment_confirmed"])
	assert.Nil(t, b.Rows[2]["expiry_date"])
	assert.Equal(t, "??3506", b.Rows[2]["card_number"])
}

func TestLayoutTable_NoHeader(t *testing.T) {
	_, err := layoutTable([]textLine{line(0.0, "nothing")}, CardColumns)
	assert.Error(t, err)
}

func TestColumnFor(t *testing.T) {
	starts := []float64{10, 150, 250}
	assert.Equal(t, 0, columnFor(5, starts))
	assert.Equal(t, 0, columnFor(10, starts))
	assert.Equal(t, 0, columnFor(120, starts))
	assert.Equal(t, 1, columnFor(149, starts))
	assert.Equal(t, 2, columnFor(900, starts))
}

func TestPDFExtractor_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := (&PDFExtractor{URL: srv.URL, Client: srv.Client()}).Extract(context.Background())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.Code)
}

func TestPDFExtractor_NotAPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain text"))
	}))
	defer srv.Close()

	_, err := (&PDFExtractor{URL: srv.URL, Client: srv.Client()}).Extract(context.Background())
	assert.Error(t, err)
}
