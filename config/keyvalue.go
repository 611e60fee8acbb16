package config

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"time"
)

// KV is a key/value pair.
type KV struct{ Key, Value string }

// KVSlice is a collection of key/value pairs.
type KVSlice []KV

func (kv KVSlice) Len() int           { return len(kv) }
func (kv KVSlice) Less(i, j int) bool { return kv[i].Key < kv[j].Key }
func (kv KVSlice) Swap(i, j int)      { kv[i], kv[j] = kv[j], kv[i] }

// EnvKV turns a struct with `env` keys into a list of variable names and their
// current values. Note you must dereference a pointer type to use this.
func EnvKV(cfg any) (m KVSlice) {
	t := reflect.TypeOf(cfg)
	for i := 0; i < t.NumField(); i++ {
		k := t.Field(i).Tag.Get("env")
		if k == "" {
			continue
		}
		var val string
		switch v := reflect.ValueOf(cfg).Field(i).Interface().(type) {
		case string:
			val = v
		case int, int64, bool, time.Duration:
			val = fmt.Sprint(v)
		case []string:
			val = strings.Join(v, ",")
		}
		m = append(m, KV{k, val})
	}
	return
}

// PrintEnv renders the configuration as a shell script.
func PrintEnv(cfg *C, printer io.Writer) {
	_, _ = fmt.Fprintln(printer, "#!/usr/bin/env bash")
	kvs := EnvKV(*cfg)
	sort.Sort(kvs)
	for _, v := range kvs {
		if strings.ContainsAny(v.Value, " |") {
			_, _ = fmt.Fprintf(printer, "export %s=%q\n", v.Key, v.Value)
			continue
		}
		_, _ = fmt.Fprintf(printer, "export %s=%s\n", v.Key, v.Value)
	}
}
