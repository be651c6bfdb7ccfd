// Package configs provides embedded configuration templates for casefind.
//
// Templates are embedded at build time with go:embed so they ship with
// every distribution. `casefind init` writes the project template to the
// working directory.
package configs

import _ "embed"

// ConfigTemplate is the annotated project configuration template.
// Created by: `casefind init` as casefind.yaml in the project root.
//
//go:embed casefind.example.yaml
var ConfigTemplate string
