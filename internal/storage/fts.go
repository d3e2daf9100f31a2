package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/dgraph-io/badger/v4"

	"github.com/Benny93/flightgraph/internal/graph"
)

// Key prefixes for FTS
const (
	prefixFTSToken = "fts:t:" // fts:t:token:airportID -> weight
	prefixFTSMeta  = "fts:m:" // fts:m:airportID -> airport summary
)

// codeWeight is the score of a token that matches an IATA or ICAO code.
const codeWeight = 3

// FTSIndex is an inverted token index over airports stored in BadgerDB.
type FTSIndex struct {
	db *badger.DB
}

// NewFTSIndex creates a new FTS index using the given BadgerDB instance.
func NewFTSIndex(db *badger.DB) *FTSIndex {
	return &FTSIndex{db: db}
}

// tokenize lowercases text and splits it on anything that is not a letter
// or digit. Duplicates are removed; order follows first appearance.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool, len(fields))
	result := make([]string, 0, len(fields))
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			result = append(result, f)
		}
	}
	return result
}

// airportTokens returns the weighted tokens of an airport. Words of the
// name, city and country count once per field they appear in; the IATA and
// ICAO codes count codeWeight each.
func airportTokens(a *graph.Airport) map[string]int {
	weights := make(map[string]int)
	for _, field := range []string{a.Name, a.City, a.Country} {
		for _, tok := range tokenize(field) {
			weights[tok]++
		}
	}
	for _, code := range []string{a.IATA, a.ICAO} {
		if code != "" {
			weights[strings.ToLower(code)] += codeWeight
		}
	}
	return weights
}

func searchResultFor(a *graph.Airport) SearchResult {
	return SearchResult{
		AirportID: a.ID,
		IATA:      a.IATA,
		Name:      a.Name,
		City:      a.City,
		Country:   a.Country,
	}
}

// rankResults sorts by score descending, then airport id, and applies limit.
func rankResults(results []SearchResult, limit int) []SearchResult {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].AirportID < results[j].AirportID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func ftsTokenKey(token string, id int64) []byte {
	return []byte(fmt.Sprintf("%s%s:%d", prefixFTSToken, token, id))
}

func ftsMetaKey(id int64) []byte {
	return []byte(fmt.Sprintf("%s%d", prefixFTSMeta, id))
}

// IndexAirports writes the token and summary entries of airports into wb.
func (f *FTSIndex) IndexAirports(wb *badger.WriteBatch, airports []graph.Airport) error {
	for i := range airports {
		a := &airports[i]
		for token, weight := range airportTokens(a) {
			if err := wb.Set(ftsTokenKey(token, a.ID), []byte(strconv.Itoa(weight))); err != nil {
				return fmt.Errorf("setting token index: %w", err)
			}
		}

		summary, err := json.Marshal(searchResultFor(a))
		if err != nil {
			return fmt.Errorf("marshaling airport summary: %w", err)
		}
		if err := wb.Set(ftsMetaKey(a.ID), summary); err != nil {
			return fmt.Errorf("setting airport summary: %w", err)
		}
	}
	return nil
}

// Search scores airports by the summed weight of the query tokens they
// contain.
func (f *FTSIndex) Search(query string, limit int) ([]SearchResult, error) {
	if f.db == nil {
		return []SearchResult{}, nil
	}

	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return []SearchResult{}, nil
	}

	scores := make(map[int64]float64)

	txn := f.db.NewTransaction(false)
	defer txn.Discard()

	for _, token := range queryTokens {
		prefix := fmt.Sprintf("%s%s:", prefixFTSToken, token)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id, err := strconv.ParseInt(strings.TrimPrefix(string(item.Key()), prefix), 10, 64)
			if err != nil {
				continue
			}

			var weight int
			_ = item.Value(func(val []byte) error {
				weight, _ = strconv.Atoi(string(val))
				return nil
			})
			scores[id] += float64(weight)
		}
		it.Close()
	}

	results := make([]SearchResult, 0, len(scores))
	for id, score := range scores {
		if score <= 0 {
			continue
		}

		item, err := txn.Get(ftsMetaKey(id))
		if err != nil {
			continue
		}

		var r SearchResult
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &r)
		}); err != nil {
			return nil, fmt.Errorf("unmarshaling airport summary: %w", err)
		}
		r.Score = score
		results = append(results, r)
	}

	return rankResults(results, limit), nil
}

// IndexSize returns the number of indexed token entries.
func (f *FTSIndex) IndexSize() (int, error) {
	if f.db == nil {
		return 0, nil
	}

	count := 0
	txn := f.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefixFTSToken)
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		count++
	}

	return count, nil
}
