package metadata

/** @brief The name of the directory holding the fallback material. */
const DefaultMaterialName string = "default"

// MapKind indexes the texture maps a material provides.
type MapKind int

const (
	MapAlbedo MapKind = iota
	MapMetallic
	MapRoughness
	MapAO
	MapNormal
	MapHeight
	MapCount
)

var mapFileNames = [MapCount]string{
	MapAlbedo:    "albedo.png",
	MapMetallic:  "metallic.png",
	MapRoughness: "roughness.png",
	MapAO:        "ao.png",
	MapNormal:    "normal.png",
	MapHeight:    "height.png",
}

var mapNames = [MapCount]string{
	MapAlbedo:    "albedo",
	MapMetallic:  "metallic",
	MapRoughness: "roughness",
	MapAO:        "ao",
	MapNormal:    "normal",
	MapHeight:    "height",
}

/** @brief The file name the map is expected under inside a material directory. */
func (k MapKind) FileName() string {
	if k < 0 || k >= MapCount {
		return ""
	}
	return mapFileNames[k]
}

func (k MapKind) String() string {
	if k < 0 || k >= MapCount {
		return "unknown"
	}
	return mapNames[k]
}

/**
 * @brief A material as found on disk: a directory name and one path
 * per map kind. Paths are empty when the file does not exist.
 */
type MaterialSource struct {
	Name  string
	Paths [MapCount]string
}
