package assets

import (
	"errors"

	"github.com/spaghettifunk/anima-assets/engine/assets/loaders"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

// RegisterDefaults registers the engine's built-in loaders on r. Failures are
// collected so one bad registration does not hide the others.
func RegisterDefaults(r *Registry) error {
	dialogue, err := loaders.NewDialogueLoader()
	if err != nil {
		return err
	}

	defaults := []struct {
		t      resources.ResourceType
		loader resources.Loader
	}{
		{resources.ResourceTypeText, &loaders.TextLoader{}},
		{resources.ResourceTypeBinary, &loaders.BinaryLoader{}},
		{resources.ResourceTypeTexture, &loaders.TextureLoader{}},
		{resources.ResourceTypeSprite, &loaders.SpriteLoader{AssetRoot: r.AssetRoot(), Metadata: r.Metadata()}},
		{resources.ResourceTypeShader, &loaders.ShaderLoader{}},
		{resources.ResourceTypeMaterial, &loaders.MaterialLoader{}},
		{resources.ResourceTypeBitmapFont, &loaders.BitmapFontLoader{}},
		{resources.ResourceTypeSystemFont, &loaders.SystemFontLoader{}},
		{resources.ResourceTypeDialogue, dialogue},
		{resources.ResourceTypeAnimator, loaders.NewAnimatorLoader()},
		{resources.ResourceTypeScene, loaders.NewSceneLoader()},
		{resources.ResourceTypeData, loaders.NewGenericDataLoader()},
	}

	var errs []error
	for _, d := range defaults {
		if err := r.RegisterLoader(d.t, d.loader); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
