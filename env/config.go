// Package env is an implementation of the env.Source interface from
// go-simpler.org
package env

import (
	"os"
	"strings"

	"longform.lol/chk"
)

// Env is a key/value map used to represent environment variables. This is
// implemented for go-simpler.org library.
type Env map[string]string

// GetEnv reads a file expected to represent a collection of KEY=value in
// standard shell environment variable format. Blank lines, comments and an
// optional leading `export` are skipped, and surrounding quotes are removed
// from values.
func GetEnv(path string) (env Env, err error) {
	var s []byte
	env = make(Env)
	if s, err = os.ReadFile(path); chk.T(err) {
		return
	}
	for _, line := range strings.Split(string(s), "\n") {
		line = strings.TrimSpace(line)
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		split := strings.SplitN(line, "=", 2)
		if len(split) != 2 {
			continue
		}
		env[strings.TrimSpace(split[0])] = unquote(strings.TrimSpace(split[1]))
	}
	return
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// LookupEnv returns the raw string value associated with a provided key name,
// used as a custom environment variable loader for go-simpler.org/env to enable
// .env file loading.
func (env Env) LookupEnv(key string) (value string, ok bool) {
	value, ok = env[key]
	return
}
