package parsers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const airportsDat = `3093,"Indira Gandhi International Airport","Delhi","India","DEL","VIDP",28.5665,77.103104,777,5.5,"N","Asia/Calcutta","airport","OurAirports"
3797,"John F Kennedy International Airport","New York","United States","JFK","KJFK",40.63980103,-73.77890015,13,-5,"A","America/New_York","airport","OurAirports"
5,"Nowhere Strip","Nowhere","Nowhere","\N","\N",\N,bad,\N,\N,"\N","\N","airport","OurAirports"
x,"Broken","City","Country","BRK","XXXX",1,1,1,1,"N","Tz","airport","OurAirports"
7,"Short row"
`

const airlinesDat = `-1,"Unknown",\N,"-","N/A","","","Y"
324,"All Nippon Airways","ANA All Nippon Airways","NH","ANA","ALL NIPPON","Japan","Y"
\N,"No id",\N,"","","","","N"
`

const routesDat = `AI,3093,DEL,3093,JFK,3797,,0,77W 788
2B,410,AER,2965,KZN,2990,Y,\N,CR2
ZZ,\N,AAA,\N,BBB,5,,0,
ZZ,\N,AAA,5,BBB,\N,,0,
XX,bad,CCC,1,DDD,2,,2,
`

func TestAirportsParser_Parse(t *testing.T) {
	t.Parallel()

	result, err := NewAirportsParser().Parse("airports.dat", []byte(airportsDat))
	require.NoError(t, err)

	require.Len(t, result.Airports, 3)
	del := result.Airports[0]
	assert.Equal(t, int64(3093), del.AirportID)
	assert.Equal(t, "Delhi", del.City)
	assert.Equal(t, "DEL", del.IATA)
	require.NotNil(t, del.Latitude)
	assert.InDelta(t, 28.5665, *del.Latitude, 1e-9)
	require.NotNil(t, del.TimezoneOffset)
	assert.InDelta(t, 5.5, *del.TimezoneOffset, 1e-9)
	assert.Equal(t, "Asia/Calcutta", del.Timezone)

	t.Run("NullsBecomeAbsent", func(t *testing.T) {
		t.Parallel()
		nowhere := result.Airports[2]
		assert.Equal(t, int64(5), nowhere.AirportID)
		assert.Empty(t, nowhere.IATA)
		assert.Empty(t, nowhere.ICAO)
		assert.Nil(t, nowhere.Latitude)
		assert.Nil(t, nowhere.Longitude)
		assert.Empty(t, nowhere.DST)
	})

	t.Run("RowErrors", func(t *testing.T) {
		t.Parallel()
		require.Len(t, result.Errors, 2)
		assert.Equal(t, 4, result.Errors[0].Line)
		assert.ErrorIs(t, result.Errors[0], ErrInvalidAirportID)
		assert.Equal(t, 5, result.Errors[1].Line)
	})
}

func TestAirlinesParser_Parse(t *testing.T) {
	t.Parallel()

	result, err := ParseAirlines(strings.NewReader(airlinesDat))
	require.NoError(t, err)

	require.Len(t, result.Airlines, 3)
	require.NotNil(t, result.Airlines[0].AirlineID)
	assert.Equal(t, int64(-1), *result.Airlines[0].AirlineID)
	assert.Empty(t, result.Airlines[0].Alias)

	ana := result.Airlines[1]
	assert.Equal(t, int64(324), *ana.AirlineID)
	assert.Equal(t, "NH", ana.IATA)
	assert.Equal(t, "Japan", ana.Country)
	assert.Equal(t, "Y", ana.Active)

	assert.Nil(t, result.Airlines[2].AirlineID)
	assert.Empty(t, result.Errors)
}

func TestRoutesParser_Parse(t *testing.T) {
	t.Parallel()

	result, err := ParseRoutes(strings.NewReader(routesDat))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Filtered)
	require.Len(t, result.Routes, 3)

	ai := result.Routes[0]
	assert.Equal(t, "AI", ai.AirlineCode)
	assert.Equal(t, int64(3093), *ai.AirlineID)
	assert.Equal(t, int64(3093), ai.SourceID)
	assert.Equal(t, int64(3797), ai.DestID)
	assert.False(t, ai.Codeshare)
	assert.Equal(t, 0, ai.Stops)
	assert.Equal(t, []string{"77W", "788"}, ai.Equipment)

	t.Run("CodeshareAndDefaultStops", func(t *testing.T) {
		t.Parallel()
		r := result.Routes[1]
		assert.True(t, r.Codeshare)
		assert.Equal(t, 0, r.Stops)
		assert.Equal(t, []string{"CR2"}, r.Equipment)
	})

	t.Run("UnparseableAirlineIDKept", func(t *testing.T) {
		t.Parallel()
		r := result.Routes[2]
		assert.Nil(t, r.AirlineID)
		assert.Equal(t, "XX", r.AirlineCode)
		assert.Equal(t, 2, r.Stops)
		assert.Empty(t, r.Equipment)
	})
}

func TestForFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		kind string
	}{
		{"Airports", "/data/airports.dat", KindAirports},
		{"AirportsExtended", "airports-extended.dat", KindAirports},
		{"Airlines", "airlines.dat", KindAirlines},
		{"Routes", "data/routes.dat", KindRoutes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := ForFile(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, p.Kind())
		})
	}

	t.Run("Unknown", func(t *testing.T) {
		t.Parallel()
		_, err := ForFile("planes.dat")
		assert.ErrorIs(t, err, ErrUnknownFile)
	})
}
