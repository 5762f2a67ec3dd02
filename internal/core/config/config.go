package config

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/nightconcept/nativepkg/internal/core/recipe"
)

const RecipeTomlName = "recipe.toml"

// LoadRecipeToml reads the recipe.toml file from the given dirPath and unmarshals it.
func LoadRecipeToml(dirPath string) (*recipe.File, error) {
	fullPath := filepath.Join(dirPath, RecipeTomlName)
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, err
	}

	var f recipe.File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// WriteRecipeToml marshals the recipe file and writes it to the specified dirPath.
// It will overwrite the file if it already exists.
func WriteRecipeToml(dirPath string, data *recipe.File) error {
	buf := new(bytes.Buffer)
	if err := toml.NewEncoder(buf).Encode(data); err != nil {
		return err
	}

	fullPath := filepath.Join(dirPath, RecipeTomlName)
	file, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	_, err = file.Write(buf.Bytes())
	return err
}

// ResolveRecipe returns base with dirPath's recipe.toml applied.
// A missing recipe.toml is not an error; base is returned unchanged.
func ResolveRecipe(dirPath string, base recipe.Recipe) (recipe.Recipe, error) {
	f, err := LoadRecipeToml(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return base, err
	}
	return base.Apply(f)
}
