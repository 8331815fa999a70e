package main

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/steveiliop56/tinyoauth/internal/config"
	"github.com/steveiliop56/tinyoauth/internal/utils/tlog"
)

type EnvEntry struct {
	Name        string
	Description string
	Value       any
}

func generateExampleEnv() {
	cfg := config.NewDefaultConfiguration()
	entries := make([]EnvEntry, 0)

	root := reflect.TypeOf(cfg).Elem()
	rootValue := reflect.ValueOf(cfg).Elem()

	walkAndBuild(root, rootValue, config.DefaultNamePrefix, &entries, buildEnvEntry, buildEnvMapEntry, buildEnvChildPath)

	writeGenerated(".env.example", compileEnv(entries))
}

func buildEnvEntry(child reflect.StructField, childValue reflect.Value, parentPath string, entries *[]EnvEntry) {
	if child.Tag.Get("yaml") == "-" {
		return
	}

	value := childValue.Interface()

	entry := EnvEntry{
		Name:        parentPath + strings.ToUpper(child.Name),
		Description: child.Tag.Get("description"),
	}

	switch childValue.Kind() {
	case reflect.Slice:
		sl, ok := value.([]string)
		if !ok {
			tlog.App.Error().Interface("value", value).Msg("Invalid default value")
			return
		}
		entry.Value = strings.Join(sl, ",")
	case reflect.String:
		if st := value.(string); st != "" {
			entry.Value = fmt.Sprintf("%q", st)
		} else {
			entry.Value = ""
		}
	default:
		entry.Value = value
	}

	*entries = append(*entries, entry)
}

func buildEnvMapEntry(child reflect.StructField, parentPath string, entries *[]EnvEntry) {
	fieldType := child.Type

	if fieldType.Key().Kind() != reflect.String {
		tlog.App.Warn().Str("type", fieldType.Key().Kind().String()).Msg("Unsupported map key type")
		return
	}

	valueType := fieldType.Elem()

	if valueType.Kind() == reflect.Struct {
		mapPath := parentPath + strings.ToUpper(child.Name) + "_NAME_"
		walkAndBuild(valueType, reflect.New(valueType).Elem(), mapPath, entries, buildEnvEntry, buildEnvMapEntry, buildEnvChildPath)
	}
}

func buildEnvChildPath(parent string, child string) string {
	return parent + strings.ToUpper(child) + "_"
}

func compileEnv(entries []EnvEntry) []byte {
	buffer := bytes.Buffer{}
	buffer.WriteString("# Tinyoauth example configuration\n\n")

	for _, entry := range entries {
		fmt.Fprintf(&buffer, "# %s\n%s=%v\n\n", entry.Description, entry.Name, entry.Value)
	}

	return buffer.Bytes()
}
