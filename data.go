package main

import (
	"os"
	"runtime"
)

// GetDataDirectory returns where Osmium keeps its configuration,
// certificates and ACME cache.
func GetDataDirectory() string {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return appData + "\\Osmium"
		}
		return "."
	}
	home := os.Getenv("HOME")
	if home != "" {
		return home + "/.osmium"
	}
	return "."
}
