package main

import (
	"errors"
	"io/fs"
	"os"
	"reflect"

	"github.com/steveiliop56/tinyoauth/internal/utils/tlog"
)

func main() {
	tlog.NewSimpleLogger().Init()

	tlog.App.Info().Msg("Generating example env file")
	generateExampleEnv()
	tlog.App.Info().Msg("Generating config reference markdown file")
	generateMarkdown()
}

func walkAndBuild[T any](parent reflect.Type, parentValue reflect.Value,
	parentPath string, entries *[]T,
	buildEntry func(child reflect.StructField, childValue reflect.Value, parentPath string, entries *[]T),
	buildMap func(child reflect.StructField, parentPath string, entries *[]T),
	buildChildPath func(parentPath string, childName string) string,
) {
	for i := 0; i < parent.NumField(); i++ {
		field := parent.Field(i)
		fieldType := field.Type
		fieldValue := parentValue.Field(i)

		switch fieldType.Kind() {
		case reflect.Struct:
			childPath := buildChildPath(parentPath, field.Name)
			walkAndBuild(fieldType, fieldValue, childPath, entries, buildEntry, buildMap, buildChildPath)
		case reflect.Map:
			buildMap(field, parentPath, entries)
		case reflect.Bool, reflect.String, reflect.Slice, reflect.Int:
			buildEntry(field, fieldValue, parentPath, entries)
		default:
			tlog.App.Warn().Str("type", fieldType.Kind().String()).Msg("Unknown field type")
		}
	}
}

// writeGenerated replaces path with contents.
func writeGenerated(path string, contents []byte) {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		tlog.App.Fatal().Err(err).Str("path", path).Msg("Failed to remove generated file")
	}

	err = os.WriteFile(path, contents, 0644)
	if err != nil {
		tlog.App.Fatal().Err(err).Str("path", path).Msg("Failed to write generated file")
	}
}
