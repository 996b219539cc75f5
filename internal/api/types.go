// Package api talks to the game's HTTP API: login and the listing of
// servers and characters that precede any WebSocket session.
package api

import (
	"net/http"
	"sort"
	"strings"
)

// AuthCookieName is the cookie the login call sets on success.
const AuthCookieName = "auth"

// Credential is the opaque name/value pair obtained from a login. Sessions
// attach it to their WebSocket handshake without interpreting it.
type Credential struct {
	Name  string
	Value string
}

// Valid reports whether c holds a usable credential.
func (c Credential) Valid() bool {
	return strings.TrimSpace(c.Name) != "" && c.Value != ""
}

// Cookie returns c as an HTTP cookie.
func (c Credential) Cookie() *http.Cookie {
	return &http.Cookie{Name: c.Name, Value: c.Value}
}

// Server is one game server entry.
type Server struct {
	Name    string `json:"name"`
	Region  string `json:"region"`
	Players int    `json:"players"`
	Key     string `json:"key"`
	Addr    string `json:"addr"`
	Port    int    `json:"port"`
}

// Character is one character owned by the logged-in account.
type Character struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Level int    `json:"level"`
	Class string `json:"type"`
	Home  string `json:"home"`
}

// Catalog indexes servers by key and characters by name.
type Catalog struct {
	Servers    map[string]Server
	Characters map[string]Character
}

// CharacterNames returns the character names in sorted order.
func (c Catalog) CharacterNames() []string {
	names := make([]string, 0, len(c.Characters))
	for name := range c.Characters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ServerKeys returns the server keys in sorted order.
func (c Catalog) ServerKeys() []string {
	keys := make([]string, 0, len(c.Servers))
	for key := range c.Servers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
