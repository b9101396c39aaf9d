package crs

import (
	"math"
	"strconv"
	"strings"
)

// WGS84 ellipsoid and UTM constants.
const (
	semiMajor     = 6378137.0
	flattening    = 1 / 298.257223563
	utmScale      = 0.9996
	falseEasting  = 500000.0
	falseNorthing = 10000000.0
)

// utm is a WGS84 UTM zone projected with the 6th order Krüger series of
// the transverse Mercator. Round trips stay below a micrometre out to
// several zone widths from the central meridian.
type utm struct {
	lon0  float64 // central meridian, radians
	south bool
}

var (
	tmN     = flattening / (2 - flattening)
	tmE     = math.Sqrt(flattening * (2 - flattening))
	tmA     = semiMajor / (1 + tmN) * (1 + tmN*tmN/4 + math.Pow(tmN, 4)/64 + math.Pow(tmN, 6)/256)
	tmAlpha = krugerAlpha(tmN)
	tmBeta  = krugerBeta(tmN)
)

func krugerAlpha(n float64) [6]float64 {
	n2, n3, n4, n5, n6 := n*n, n*n*n, math.Pow(n, 4), math.Pow(n, 5), math.Pow(n, 6)
	return [6]float64{
		n/2 - 2*n2/3 + 5*n3/16 + 41*n4/180 - 127*n5/288 + 7891*n6/37800,
		13*n2/48 - 3*n3/5 + 557*n4/1440 + 281*n5/630 - 1983433*n6/1935360,
		61*n3/240 - 103*n4/140 + 15061*n5/26880 + 167603*n6/181440,
		49561*n4/161280 - 179*n5/168 + 6601661*n6/7257600,
		34729*n5/80640 - 3418889*n6/1995840,
		212378941 * n6 / 319334400,
	}
}

func krugerBeta(n float64) [6]float64 {
	n2, n3, n4, n5, n6 := n*n, n*n*n, math.Pow(n, 4), math.Pow(n, 5), math.Pow(n, 6)
	return [6]float64{
		n/2 - 2*n2/3 + 37*n3/96 - n4/360 - 81*n5/512 + 96199*n6/604800,
		n2/48 + n3/15 - 437*n4/1440 + 46*n5/105 - 1118711*n6/3870720,
		17*n3/480 - 37*n4/840 - 209*n5/4480 + 5569*n6/90720,
		4397*n4/161280 - 11*n5/504 - 830251*n6/7257600,
		4583*n5/161280 - 108847*n6/3991680,
		20648693 * n6 / 638668800,
	}
}

func newUTM(zone int, south bool) utm {
	return utm{lon0: float64(zone*6-183) * math.Pi / 180, south: south}
}

// conformal maps tan(lat) to tan of the conformal latitude.
func conformal(tau float64) float64 {
	sigma := math.Sinh(tmE * math.Atanh(tmE*tau/math.Sqrt(1+tau*tau)))
	return tau*math.Sqrt(1+sigma*sigma) - sigma*math.Sqrt(1+tau*tau)
}

func (u utm) forward(lon, lat float64) (float64, float64, error) {
	phi := lat * math.Pi / 180
	lambda := lon*math.Pi/180 - u.lon0
	lambda = math.Remainder(lambda, 2*math.Pi)

	tauP := conformal(math.Tan(phi))
	cosL := math.Cos(lambda)
	xiP := math.Atan2(tauP, cosL)
	etaP := math.Asinh(math.Sin(lambda) / math.Sqrt(tauP*tauP+cosL*cosL))

	xi, eta := xiP, etaP
	for j, a := range tmAlpha {
		k := 2 * float64(j+1)
		xi += a * math.Sin(k*xiP) * math.Cosh(k*etaP)
		eta += a * math.Cos(k*xiP) * math.Sinh(k*etaP)
	}

	x := utmScale*tmA*eta + falseEasting
	y := utmScale * tmA * xi
	if u.south {
		y += falseNorthing
	}
	return x, y, nil
}

func (u utm) inverse(x, y float64) (float64, float64, error) {
	if u.south {
		y -= falseNorthing
	}
	xi := y / (utmScale * tmA)
	eta := (x - falseEasting) / (utmScale * tmA)

	xiP, etaP := xi, eta
	for j, b := range tmBeta {
		k := 2 * float64(j+1)
		xiP -= b * math.Sin(k*xi) * math.Cosh(k*eta)
		etaP -= b * math.Cos(k*xi) * math.Sinh(k*eta)
	}

	sinhEta := math.Sinh(etaP)
	sinXi, cosXi := math.Sincos(xiP)
	tauP := sinXi / math.Sqrt(sinhEta*sinhEta+cosXi*cosXi)

	// Newton iteration for tan(lat) from tan of the conformal latitude
	tau := tauP
	e2 := tmE * tmE
	for i := 0; i < 10; i++ {
		t := conformal(tau)
		d := (tauP - t) / math.Sqrt(1+t*t) *
			(1 + (1-e2)*tau*tau) / ((1 - e2) * math.Sqrt(1+tau*tau))
		tau += d
		if math.Abs(d) < 1e-12 {
			break
		}
	}

	lat := math.Atan(tau) * 180 / math.Pi
	lon := (math.Atan2(sinhEta, cosXi) + u.lon0) * 180 / math.Pi
	return lon, lat, nil
}

// utmFromProj4 recognizes a plain WGS84 UTM proj4 definition.
func utmFromProj4(def string) (utm, bool) {
	zone, south, isUTM := 0, false, false
	for _, field := range strings.Fields(def) {
		key, value, _ := strings.Cut(strings.TrimPrefix(field, "+"), "=")
		switch key {
		case "proj":
			isUTM = value == "utm"
		case "zone":
			z, err := strconv.Atoi(value)
			if err != nil {
				return utm{}, false
			}
			zone = z
		case "south":
			south = true
		case "datum", "ellps":
			if !strings.EqualFold(value, "WGS84") {
				return utm{}, false
			}
		case "units":
			if value != "m" {
				return utm{}, false
			}
		case "no_defs", "type":
		default:
			return utm{}, false
		}
	}
	if !isUTM || zone < 1 || zone > 60 {
		return utm{}, false
	}
	return newUTM(zone, south), true
}
