package packager

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/papercraft-labs/pcrelease/internal/manifest"
	"github.com/papercraft-labs/pcrelease/internal/release"
)

var desktopTmpl = template.Must(template.New("desktop").Parse(`[Desktop Entry]
Type=Application
Name={{.Name}}
{{- if .Comment}}
Comment={{.Comment}}
{{- end}}
Exec={{.Binary}} %f
Icon={{.Binary}}
Categories={{.Categories}}
Terminal=false
`))

var appRunTmpl = template.Must(template.New("apprun").Parse(`#!/bin/sh
HERE="$(dirname "$(readlink -f "$0")")"
export PATH="$HERE/usr/bin:$PATH"
export LD_LIBRARY_PATH="$HERE/usr/lib${LD_LIBRARY_PATH:+:$LD_LIBRARY_PATH}"
exec "$HERE/usr/bin/{{.Binary}}" "$@"
`))

var infoPlistTmpl = template.Must(template.New("plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>CFBundleDevelopmentRegion</key>
	<string>en</string>
	<key>CFBundleDisplayName</key>
	<string>{{.Name}}</string>
	<key>CFBundleExecutable</key>
	<string>{{.Binary}}</string>
	<key>CFBundleIdentifier</key>
	<string>{{.BundleID}}</string>
	<key>CFBundleInfoDictionaryVersion</key>
	<string>6.0</string>
	<key>CFBundleName</key>
	<string>{{.Name}}</string>
	<key>CFBundlePackageType</key>
	<string>APPL</string>
	<key>CFBundleShortVersionString</key>
	<string>{{.Version}}</string>
	<key>CFBundleVersion</key>
	<string>{{.Version}}</string>
{{- if .Icon}}
	<key>CFBundleIconFile</key>
	<string>{{.Icon}}</string>
{{- end}}
	<key>LSMinimumSystemVersion</key>
	<string>{{.MinimumSystem}}</string>
	<key>NSHighResolutionCapable</key>
	<true/>
</dict>
</plist>
`))

type templateData struct {
	Name          string
	Binary        string
	Comment       string
	Categories    string
	BundleID      string
	Version       string
	Icon          string
	MinimumSystem string
}

func newTemplateData(app manifest.App, tag release.Tag) templateData {
	name := app.DisplayName
	if name == "" {
		name = app.Binary
	}
	categories := "Graphics;"
	if len(app.Categories) > 0 {
		categories = strings.Join(app.Categories, ";") + ";"
	}
	version := strings.TrimPrefix(tag.String(), "v")
	if v, ok := tag.Semver(); ok {
		version = v.String()
	}
	return templateData{
		Name:          name,
		Binary:        app.Binary,
		Comment:       app.Comment,
		Categories:    categories,
		BundleID:      app.BundleID,
		Version:       version,
		MinimumSystem: "10.12",
	}
}

func render(t *template.Template, data templateData) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
