package appfs

import "embed"

//go:embed migrations/*.sql assets/templates/email/*
var FS embed.FS
