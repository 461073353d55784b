// Package config handles loading and parsing the Bookshelf client
// configuration file.
package config
