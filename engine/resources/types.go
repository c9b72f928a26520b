package resources

// Resource is a loaded, in-memory representation of an on-disk asset.
// Resources are shared handles: loaders always hand out pointers so that a
// hot reload can write new state into the instance every holder already has.
type Resource = any

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	/** @brief No type. Returned when a type cannot be resolved. */
	ResourceTypeNone ResourceType = iota
	/** @brief Text resource type. */
	ResourceTypeText
	/** @brief Binary resource type. */
	ResourceTypeBinary
	/** @brief Texture resource type (decoded image). */
	ResourceTypeTexture
	/** @brief Sprite resource type. Sprite sheets expose their cells as sub-assets. */
	ResourceTypeSprite
	/** @brief Shader resource type (compiled SPIR-V bytecode). */
	ResourceTypeShader
	/** @brief Material resource type. */
	ResourceTypeMaterial
	/** @brief Bitmap font resource type. */
	ResourceTypeBitmapFont
	/** @brief System font resource type. */
	ResourceTypeSystemFont
	/** @brief Dialogue tree resource type. */
	ResourceTypeDialogue
	/** @brief Animation controller resource type. */
	ResourceTypeAnimator
	/** @brief Scene graph resource type. */
	ResourceTypeScene
	/** @brief Free-form structured data. */
	ResourceTypeData
	/** @brief Custom resource type. Used by loaders outside the core engine. */
	ResourceTypeCustom
)

var resourceTypeNames = [...]string{
	ResourceTypeNone:       "none",
	ResourceTypeText:       "text",
	ResourceTypeBinary:     "binary",
	ResourceTypeTexture:    "texture",
	ResourceTypeSprite:     "sprite",
	ResourceTypeShader:     "shader",
	ResourceTypeMaterial:   "material",
	ResourceTypeBitmapFont: "bitmap_font",
	ResourceTypeSystemFont: "system_font",
	ResourceTypeDialogue:   "dialogue",
	ResourceTypeAnimator:   "animator",
	ResourceTypeScene:      "scene",
	ResourceTypeData:       "data",
	ResourceTypeCustom:     "custom",
}

func (t ResourceType) String() string {
	if t < 0 || int(t) >= len(resourceTypeNames) {
		return "unknown"
	}
	return resourceTypeNames[t]
}

// ParseResourceType maps a name produced by String back to its type.
func ParseResourceType(name string) (ResourceType, bool) {
	for i, n := range resourceTypeNames {
		if n == name {
			return ResourceType(i), true
		}
	}
	return ResourceTypeNone, false
}
