package graph

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func airport(id int64, iata, country string) AirportRecord {
	return AirportRecord{AirportID: id, Name: iata + " Airport", City: iata + " City", Country: country, IATA: iata}
}

func route(code string, src, dst int64) RouteRecord {
	return RouteRecord{AirlineCode: code, SourceID: src, DestID: dst}
}

func TestNewStore(t *testing.T) {
	t.Parallel()

	s := NewStore()

	assert.NotNil(t, s)
	assert.Equal(t, 0, s.AirportCount())
	assert.Equal(t, 0, s.AirlineCount())
	assert.Equal(t, 0, s.FlightCount())
	assert.False(t, s.DistancesReady())
}

func TestStore_UpsertAirports(t *testing.T) {
	t.Parallel()

	t.Run("Insert", func(t *testing.T) {
		t.Parallel()
		s := NewStore()

		res := s.UpsertAirports([]AirportRecord{airport(1, "AAA", "X"), airport(2, "BBB", "Y")})

		assert.Equal(t, 2, res.Applied)
		assert.Equal(t, 2, s.AirportCount())
		a, ok := s.Airport(1)
		require.True(t, ok)
		assert.Equal(t, "AAA", a.IATA)
	})

	t.Run("OverwriteReplacesWholeRecord", func(t *testing.T) {
		t.Parallel()
		s := NewStore()

		first := airport(1, "AAA", "X")
		first.Latitude = f64(10)
		s.UpsertAirports([]AirportRecord{first})

		second := airport(1, "ZZZ", "Y")
		s.UpsertAirports([]AirportRecord{second})

		assert.Equal(t, 1, s.AirportCount())
		a, ok := s.Airport(1)
		require.True(t, ok)
		assert.Equal(t, "ZZZ", a.IATA)
		assert.Equal(t, "Y", a.Country)
		assert.Nil(t, a.Latitude)

		snap := s.Snapshot()
		assert.Empty(t, snap.AirportsByIATA("AAA"))
		assert.Empty(t, snap.AirportsByCountry("X"))
		assert.Equal(t, []int{0}, snap.AirportsByIATA("ZZZ"))
	})

	t.Run("LastWriterWinsWithinBatch", func(t *testing.T) {
		t.Parallel()
		s := NewStore()

		s.UpsertAirports([]AirportRecord{airport(7, "AAA", "X"), airport(7, "BBB", "X")})

		a, _ := s.Airport(7)
		assert.Equal(t, "BBB", a.IATA)
	})

	t.Run("MarksDistancesStale", func(t *testing.T) {
		t.Parallel()
		s := NewStore()
		s.UpsertAirports([]AirportRecord{airport(1, "AAA", "X")})
		s.ApplyEdgeWeights(func(_, _ *Airport) (float64, bool) { return 1, true })
		require.True(t, s.DistancesReady())

		s.UpsertAirports([]AirportRecord{airport(1, "AAA", "X")})

		assert.False(t, s.DistancesReady())
	})
}

func TestStore_UpsertAirlines(t *testing.T) {
	t.Parallel()

	s := NewStore()
	res := s.UpsertAirlines([]AirlineRecord{
		{AirlineID: i64(10), Name: "First"},
		{Name: "No identity"},
		{AirlineID: i64(10), Name: "Second"},
	})

	assert.Equal(t, 2, res.Applied)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 1, res.Errors[0].Index)
	assert.ErrorIs(t, res.Errors[0], ErrMissingAirlineID)

	al, ok := s.Airline(10)
	require.True(t, ok)
	assert.Equal(t, "Second", al.Name)
	assert.Equal(t, 1, s.AirlineCount())
}

func TestStore_InsertFlights(t *testing.T) {
	t.Parallel()

	t.Run("AppendOnlyDoublesParallelEdges", func(t *testing.T) {
		t.Parallel()
		s := NewStore()
		s.UpsertAirports([]AirportRecord{airport(1, "AAA", "X"), airport(2, "BBB", "X")})
		batch := []RouteRecord{route("AA", 1, 2), route("BB", 2, 1)}

		first := s.InsertFlights(batch)
		second := s.InsertFlights(batch)

		assert.Equal(t, 2, first.Inserted)
		assert.Equal(t, 2, second.Inserted)
		assert.Equal(t, 4, s.FlightCount())

		snap := s.Snapshot()
		i, _ := snap.IndexOf(1)
		assert.Len(t, snap.Out(i), 2)
	})

	t.Run("MissingEndpointSkipped", func(t *testing.T) {
		t.Parallel()
		s := NewStore()
		s.UpsertAirports([]AirportRecord{airport(1, "AAA", "X")})

		res := s.InsertFlights([]RouteRecord{route("AA", 1, 99), route("AA", 98, 1), route("AA", 1, 1)})

		assert.Equal(t, 1, res.Inserted)
		assert.Equal(t, 2, res.Skipped)
		require.Len(t, res.Errors, 2)
		assert.Equal(t, 0, res.Errors[0].Index)
		assert.Equal(t, 1, res.Errors[1].Index)
		assert.True(t, errors.Is(res.Errors[0], ErrMissingEndpoint))
	})

	t.Run("UnknownAirlineKept", func(t *testing.T) {
		t.Parallel()
		s := NewStore()
		s.UpsertAirports([]AirportRecord{airport(1, "AAA", "X"), airport(2, "BBB", "X")})

		rec := route("ZZ", 1, 2)
		rec.AirlineID = i64(4242)
		res := s.InsertFlights([]RouteRecord{rec})

		assert.Equal(t, 1, res.Inserted)
		snap := s.Snapshot()
		require.Equal(t, 1, snap.FlightCount())
		assert.Equal(t, int64(4242), *snap.Flight(0).AirlineID)
		_, ok := snap.FlightAirline(0)
		assert.False(t, ok)
	})

	t.Run("FlightIDsAreSequential", func(t *testing.T) {
		t.Parallel()
		s := NewStore()
		s.UpsertAirports([]AirportRecord{airport(1, "AAA", "X"), airport(2, "BBB", "X")})
		s.InsertFlights([]RouteRecord{route("AA", 1, 2)})
		s.InsertFlights([]RouteRecord{route("AA", 2, 1), route("AA", 1, 2)})

		snap := s.Snapshot()
		for e := 0; e < snap.FlightCount(); e++ {
			assert.Equal(t, int64(e+1), snap.Flight(e).ID)
		}
	})
}

func TestStore_Snapshot(t *testing.T) {
	t.Parallel()

	t.Run("DenseIndexInIDOrder", func(t *testing.T) {
		t.Parallel()
		s := NewStore()
		s.UpsertAirports([]AirportRecord{airport(30, "CCC", "X"), airport(10, "AAA", "X"), airport(20, "BBB", "X")})

		snap := s.Snapshot()

		require.Equal(t, 3, snap.AirportCount())
		assert.Equal(t, int64(10), snap.Airport(0).ID)
		assert.Equal(t, int64(20), snap.Airport(1).ID)
		assert.Equal(t, int64(30), snap.Airport(2).ID)
	})

	t.Run("OutEdgesSortedByDestinationThenFlight", func(t *testing.T) {
		t.Parallel()
		s := NewStore()
		s.UpsertAirports([]AirportRecord{airport(1, "AAA", "X"), airport(2, "BBB", "X"), airport(3, "CCC", "X")})
		s.InsertFlights([]RouteRecord{route("A", 1, 3), route("B", 1, 2), route("C", 1, 3), route("D", 1, 2)})

		snap := s.Snapshot()
		i, _ := snap.IndexOf(1)
		var got []int64
		for _, e := range snap.Out(i) {
			got = append(got, snap.Flight(e).ID)
		}

		assert.Equal(t, []int64{2, 4, 1, 3}, got)
	})

	t.Run("CachedPerGeneration", func(t *testing.T) {
		t.Parallel()
		s := NewStore()
		s.UpsertAirports([]AirportRecord{airport(1, "AAA", "X")})

		a := s.Snapshot()
		b := s.Snapshot()
		assert.Same(t, a, b)

		s.UpsertAirports([]AirportRecord{airport(2, "BBB", "X")})
		c := s.Snapshot()
		assert.NotSame(t, a, c)
		assert.Equal(t, 1, a.AirportCount())
		assert.Equal(t, 2, c.AirportCount())
	})

	t.Run("IsolatedFromLaterWeights", func(t *testing.T) {
		t.Parallel()
		s := NewStore()
		s.UpsertAirports([]AirportRecord{airport(1, "AAA", "X"), airport(2, "BBB", "X")})
		s.InsertFlights([]RouteRecord{route("A", 1, 2)})
		before := s.Snapshot()

		s.ApplyEdgeWeights(func(_, _ *Airport) (float64, bool) { return 42, true })
		after := s.Snapshot()

		assert.Nil(t, before.Flight(0).DistanceKM)
		assert.False(t, before.DistancesReady())
		require.NotNil(t, after.Flight(0).DistanceKM)
		assert.InDelta(t, 42.0, *after.Flight(0).DistanceKM, 1e-9)
		assert.True(t, after.DistancesReady())
	})

	t.Run("CountryIndexMultiValued", func(t *testing.T) {
		t.Parallel()
		s := NewStore()
		s.UpsertAirports([]AirportRecord{airport(5, "AAA", "X"), airport(3, "BBB", "X"), airport(4, "CCC", "Y")})

		snap := s.Snapshot()

		assert.Equal(t, []int{0, 2}, snap.AirportsByCountry("X"))
		assert.Equal(t, []int{1}, snap.AirportsByCountry("Y"))
		assert.Nil(t, snap.AirportsByCountry("Z"))
	})
}

func TestStore_ApplyEdgeWeights(t *testing.T) {
	t.Parallel()

	s := NewStore()
	noCoords := airport(3, "CCC", "X")
	a, b := airport(1, "AAA", "X"), airport(2, "BBB", "X")
	a.Latitude, a.Longitude = f64(1), f64(1)
	b.Latitude, b.Longitude = f64(2), f64(2)
	s.UpsertAirports([]AirportRecord{a, b, noCoords})
	s.InsertFlights([]RouteRecord{route("A", 1, 2), route("A", 1, 3)})

	weigh := func(src, dst *Airport) (float64, bool) {
		if !src.HasCoordinates() || !dst.HasCoordinates() {
			return 0, false
		}
		return 1, true
	}

	assert.Equal(t, 1, s.ApplyEdgeWeights(weigh))
	assert.Equal(t, 1, s.ApplyEdgeWeights(weigh))
	assert.True(t, s.DistancesReady())

	s.InsertFlights([]RouteRecord{route("A", 2, 1)})
	assert.False(t, s.DistancesReady())
}

func TestStore_Reset(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.UpsertAirports([]AirportRecord{airport(1, "AAA", "X"), airport(2, "BBB", "X")})
	s.UpsertAirlines([]AirlineRecord{{AirlineID: i64(1), Name: "A"}})
	s.InsertFlights([]RouteRecord{route("A", 1, 2)})

	s.Reset()

	assert.Equal(t, 0, s.AirportCount())
	assert.Equal(t, 0, s.AirlineCount())
	assert.Equal(t, 0, s.FlightCount())
	assert.Empty(t, s.Snapshot().AirportsByIATA("AAA"))
}

func TestStore_ConcurrentReaders(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.UpsertAirports([]AirportRecord{airport(1, "AAA", "X"), airport(2, "BBB", "X")})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.InsertFlights([]RouteRecord{route("A", 1, 2)})
		}()
		go func() {
			defer wg.Done()
			snap := s.Snapshot()
			assert.LessOrEqual(t, snap.FlightCount(), 8)
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, s.FlightCount())
}
