package model

import "strings"

// Data set types.
const (
	DataSetEarth       = "Earth"
	DataSetPlanet      = "Planet"
	DataSetSky         = "Sky"
	DataSetPanorama    = "Panorama"
	DataSetSolarSystem = "SolarSystem"
	DataSetSandbox     = "Sandbox"
)

// DataSetTypes lists the known data set types.
var DataSetTypes = []string{
	DataSetEarth, DataSetPlanet, DataSetSky, DataSetPanorama, DataSetSolarSystem, DataSetSandbox,
}

// Bandpasses lists the known imageset band passes.
var Bandpasses = []string{
	"Gamma", "XRay", "Ultraviolet", "Visible", "HydrogenAlpha", "IR", "Microwave", "Radio", "VisibleNight",
}

// ProjectionTan is the projection of study imagesets eligible for search.
const ProjectionTan = "Tan"

// Classification names, with their numeric bit masks as used by clients.
var classificationBits = map[string]int64{
	"Unspecified":         0,
	"Star":                1,
	"Supernova":           2,
	"BlackHole":           4,
	"NeutronStar":         8,
	"DoubleStar":          16,
	"MultipleStars":       32,
	"Asterism":            64,
	"Constellation":       128,
	"OpenCluster":         256,
	"GlobularCluster":     512,
	"NebulousCluster":     1024,
	"Nebula":              2048,
	"EmissionNebula":      4096,
	"PlanetaryNebula":     8192,
	"ReflectionNebula":    16384,
	"DarkNebula":          32768,
	"GiantMolecularCloud": 65536,
	"SupernovaRemnant":    131072,
	"InterstellarDust":    262144,
	"Quasar":              524288,
	"Galaxy":              1048576,
	"SpiralGalaxy":        2097152,
	"IrregularGalaxy":     4194304,
	"EllipticalGalaxy":    8388608,
	"Knot":                16777216,
	"PlateDefect":         33554432,
	"ClusterOfGalaxies":   67108864,
	"OtherNGC":            134217728,
	"Unidentified":        268435456,
	"SolarSystem":         536870912,
	"Unfiltered":          1073741823,
	"Stellar":             63,
	"StellarGroupings":    2032,
	"Nebulae":             523264,
	"Galactic":            133169152,
	"Other":               436207616,
}

// ClassificationBits returns the numeric mask of a classification name.
func ClassificationBits(name string) (int64, bool) {
	v, ok := classificationBits[name]
	return v, ok
}

// ParseClassification normalizes a free-form classification as found in
// supplementary catalogs: spaces are dropped and a few historical aliases are
// mapped to their canonical names.
func ParseClassification(text string) (string, bool) {
	text = strings.ReplaceAll(text, " ", "")
	switch text {
	case "OpenStarCluster":
		text = "OpenCluster"
	case "TripleStar":
		text = "MultipleStars"
	}
	_, ok := classificationBits[text]
	return text, ok
}

// Constellation pairs an IAU abbreviation with its Latin name.
type Constellation struct {
	Abbrev string
	Name   string
}

// Constellations lists the 88 IAU constellations in order of Latin name.
var Constellations = []Constellation{
	{"AND", "Andromeda"}, {"ANT", "Antlia"}, {"APS", "Apus"}, {"AQR", "Aquarius"},
	{"AQL", "Aquila"}, {"ARA", "Ara"}, {"ARI", "Aries"}, {"AUR", "Auriga"},
	{"BOO", "Bootes"}, {"CAE", "Caelum"}, {"CAM", "Camelopardalis"}, {"CNC", "Cancer"},
	{"CVN", "Canes Venatici"}, {"CMA", "Canis Major"}, {"CMI", "Canis Minor"}, {"CAP", "Capricornus"},
	{"CAR", "Carina"}, {"CAS", "Cassiopeia"}, {"CEN", "Centaurus"}, {"CEP", "Cepheus"},
	{"CET", "Cetus"}, {"CHA", "Chamaeleon"}, {"CIR", "Circinus"}, {"COL", "Columba"},
	{"COM", "Coma Berenices"}, {"CRA", "Corona Australis"}, {"CRB", "Corona Borealis"}, {"CRV", "Corvus"},
	{"CRT", "Crater"}, {"CRU", "Crux"}, {"CYG", "Cygnus"}, {"DEL", "Delphinus"},
	{"DOR", "Dorado"}, {"DRA", "Draco"}, {"EQU", "Equuleus"}, {"ERI", "Eridanus"},
	{"FOR", "Fornax"}, {"GEM", "Gemini"}, {"GRU", "Grus"}, {"HER", "Hercules"},
	{"HOR", "Horologium"}, {"HYA", "Hydra"}, {"HYI", "Hydrus"}, {"IND", "Indus"},
	{"LAC", "Lacerta"}, {"LEO", "Leo"}, {"LMI", "Leo Minor"}, {"LEP", "Lepus"},
	{"LIB", "Libra"}, {"LUP", "Lupus"}, {"LYN", "Lynx"}, {"LYR", "Lyra"},
	{"MEN", "Mensa"}, {"MIC", "Microscopium"}, {"MON", "Monoceros"}, {"MUS", "Musca"},
	{"NOR", "Norma"}, {"OCT", "Octans"}, {"OPH", "Ophiuchus"}, {"ORI", "Orion"},
	{"PAV", "Pavo"}, {"PEG", "Pegasus"}, {"PER", "Perseus"}, {"PHE", "Phoenix"},
	{"PIC", "Pictor"}, {"PSC", "Pisces"}, {"PSA", "Piscis Austrinus"}, {"PUP", "Puppis"},
	{"PYX", "Pyxis"}, {"RET", "Reticulum"}, {"SGE", "Sagitta"}, {"SGR", "Sagittarius"},
	{"SCO", "Scorpius"}, {"SCL", "Sculptor"}, {"SCT", "Scutum"}, {"SER", "Serpens"},
	{"SEX", "Sextans"}, {"TAU", "Taurus"}, {"TEL", "Telescopium"}, {"TRI", "Triangulum"},
	{"TRA", "Triangulum Australe"}, {"TUC", "Tucana"}, {"UMA", "Ursa Major"}, {"UMI", "Ursa Minor"},
	{"VEL", "Vela"}, {"VIR", "Virgo"}, {"VOL", "Volans"}, {"VUL", "Vulpecula"},
}

var constellationIndex = func() map[string]string {
	idx := make(map[string]string, 2*len(Constellations))
	for _, c := range Constellations {
		idx[c.Abbrev] = c.Abbrev
		idx[strings.ToUpper(c.Name)] = c.Abbrev
		idx[strings.ToUpper(strings.ReplaceAll(c.Name, " ", ""))] = c.Abbrev
	}
	return idx
}()

// LookupConstellation resolves an abbreviation or Latin name, in any case,
// to the canonical upper-case abbreviation.
func LookupConstellation(s string) (string, bool) {
	abbrev, ok := constellationIndex[strings.ToUpper(strings.TrimSpace(s))]
	return abbrev, ok
}
