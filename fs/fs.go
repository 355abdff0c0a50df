// Package appfs embeds the files the binaries need at runtime.
package appfs

import "embed"

// templates/email/* also matches the "_base" layouts, which a bare directory pattern skips.
//
//go:embed migrations/*.sql templates/email/*
var FS embed.FS
