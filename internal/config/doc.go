// Package config loads depctl settings from layered YAML files: built-in
// defaults, then the user config under ~/.config/depctl/, then the project
// config under ./.depctl/. Later layers override earlier ones field by field.
package config
