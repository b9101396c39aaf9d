package postgis

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("postgis://localhost/geodb?table=sites"))
	assert.True(t, IsURL("postgres://localhost/geodb?table=sites"))
	assert.True(t, IsURL("postgresql://localhost/geodb?table=sites"))
	assert.False(t, IsURL("data/points.geojson"))
	assert.False(t, IsURL("/tmp/postgis/points.geojson"))
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Ref
		wantErr bool
	}{
		{
			name: "postgis scheme",
			raw:  "postgis://geo:secret@db:5432/geodb?table=heritage_sites",
			want: Ref{
				DSN:    "postgres://geo:secret@db:5432/geodb?sslmode=disable",
				Table:  "heritage_sites",
				Column: "geom",
			},
		},
		{
			name: "explicit column and sslmode",
			raw:  "postgres://db/geodb?table=public.bounds&column=shape&sslmode=require",
			want: Ref{
				DSN:    "postgres://db/geodb?sslmode=require",
				Table:  "public.bounds",
				Column: "shape",
			},
		},
		{name: "missing table", raw: "postgis://db/geodb", wantErr: true},
		{name: "file path", raw: "points.geojson", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseURL(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLayerQuery(t *testing.T) {
	q, err := layerQuery("public.heritage_sites", "geom")
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT ST_AsGeoJSON(ST_Transform(t."geom", 4326)), to_jsonb(t) - 'geom' FROM "public"."heritage_sites" AS t WHERE t."geom" IS NOT NULL`,
		q)

	q, err = layerQuery(`sites"; DROP TABLE x; --`, "geom")
	require.NoError(t, err)
	assert.Contains(t, q, `FROM "sites""; DROP TABLE x; --" AS t`)

	for _, bad := range []string{"", "a..b", "a.b.c"} {
		_, err := layerQuery(bad, "geom")
		assert.Error(t, err, bad)
	}
}

func TestFeature(t *testing.T) {
	f, err := feature(
		[]byte(`{"type":"Point","coordinates":[60.6129,56.8432]}`),
		[]byte(`{"name":"Rastorguev-Kharitonov estate","id":7}`),
	)
	require.NoError(t, err)
	assert.Equal(t, orb.Point{60.6129, 56.8432}, f.Geometry)
	assert.Equal(t, "Rastorguev-Kharitonov estate", f.Properties.MustString("name"))

	_, err = feature([]byte(`{"type":"Blob"}`), nil)
	assert.Error(t, err)
}
