package main

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/steveiliop56/tinyoauth/internal/config"
	"github.com/steveiliop56/tinyoauth/internal/utils/tlog"
)

type MarkdownEntry struct {
	Env         string
	Flag        string
	Description string
	Default     any
}

const mdRootPath = "tinyoauth."

func generateMarkdown() {
	cfg := config.NewDefaultConfiguration()
	entries := make([]MarkdownEntry, 0)

	root := reflect.TypeOf(cfg).Elem()
	rootValue := reflect.ValueOf(cfg).Elem()
	walkAndBuild(root, rootValue, mdRootPath, &entries, buildMdEntry, buildMdMapEntry, buildMdChildPath)

	writeGenerated("config.gen.md", compileMd(entries))
}

func buildMdEntry(child reflect.StructField, childValue reflect.Value, parentPath string, entries *[]MarkdownEntry) {
	desc := child.Tag.Get("description")
	tag := child.Tag.Get("yaml")

	if tag == "-" {
		return
	}

	value := childValue.Interface()

	entry := MarkdownEntry{
		Env:         strings.ToUpper(strings.ReplaceAll(parentPath, ".", "_")) + strings.ToUpper(child.Name),
		Flag:        fmt.Sprintf("--%s%s", strings.TrimPrefix(parentPath, mdRootPath), tag),
		Description: desc,
	}

	switch childValue.Kind() {
	case reflect.Slice:
		sl, ok := value.([]string)
		if !ok {
			tlog.App.Error().Interface("value", value).Msg("Invalid default value")
			return
		}
		entry.Default = fmt.Sprintf("`%s`", strings.Join(sl, ","))
	default:
		entry.Default = fmt.Sprintf("`%v`", value)
	}
	*entries = append(*entries, entry)
}

func buildMdMapEntry(child reflect.StructField, parentPath string, entries *[]MarkdownEntry) {
	fieldType := child.Type

	if fieldType.Key().Kind() != reflect.String {
		tlog.App.Warn().Str("type", fieldType.Key().Kind().String()).Msg("Unsupported map key type")
		return
	}

	tag := child.Tag.Get("yaml")

	if tag == "-" {
		return
	}

	mapPath := parentPath + tag + ".[name]."
	valueType := fieldType.Elem()

	if valueType.Kind() == reflect.Struct {
		zeroValue := reflect.New(valueType).Elem()
		walkAndBuild(valueType, zeroValue, mapPath, entries, buildMdEntry, buildMdMapEntry, buildMdChildPath)
	}
}

func buildMdChildPath(parent string, child string) string {
	return parent + strings.ToLower(child) + "."
}

func compileMd(entries []MarkdownEntry) []byte {
	buffer := bytes.Buffer{}

	buffer.WriteString("# Tinyoauth configuration reference\n\n")
	buffer.WriteString("| Environment | Flag | Description | Default |\n")
	buffer.WriteString("| - | - | - | - |\n")

	previousSection := ""

	for _, entry := range entries {
		if strings.Count(entry.Env, "_") > 1 {
			section := strings.Split(strings.TrimPrefix(entry.Env, config.DefaultNamePrefix), "_")[0]
			if section != previousSection {
				buffer.WriteString("\n## " + strings.ToLower(section) + "\n\n")
				buffer.WriteString("| Environment | Flag | Description | Default |\n")
				buffer.WriteString("| - | - | - | - |\n")
				previousSection = section
			}
		}
		fmt.Fprintf(&buffer, "| `%s` | `%s` | %s | %s |\n", entry.Env, entry.Flag, entry.Description, entry.Default)
	}

	return buffer.Bytes()
}
