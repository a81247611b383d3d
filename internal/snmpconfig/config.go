// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

// Package snmpconfig loads a snmpcore.ClientConfig from the environment
// and a YAML config file via github.com/spf13/viper, the configuration
// library used elsewhere across the retrieved pack (e.g.
// HerbHall-subnetree's go.mod). The protocol library itself never reads
// configuration; only the binaries/operators embedding it need this.
package snmpconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sipsolutions/snmpcore"
)

// Defaults mirrors the teacher family's GoSNMP zero-value defaults
// (Timeout 2s, Retries 1, MsgMaxSize 65507, version v2c).
var Defaults = map[string]interface{}{
	"endpoint":        "127.0.0.1:161",
	"version":         "2c",
	"timeout":         "2s",
	"retries":         1,
	"max_msg_size":    65507,
	"community":       "public",
	"username":        "",
	"auth_protocol":   "none",
	"auth_password":   "",
	"priv_protocol":   "none",
	"priv_password":   "",
}

// Load builds a viper.Viper seeded with Defaults, reads envPrefix-prefixed
// environment variables and, if present, a config file named configName
// found on one of the given search paths, and renders the merged result as
// a snmpcore.ClientConfig.
func Load(envPrefix, configName string, searchPaths []string) (snmpcore.ClientConfig, error) {
	v := viper.New()
	for key, val := range Defaults {
		v.SetDefault(key, val)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return snmpcore.ClientConfig{}, fmt.Errorf("snmpconfig: reading config: %w", err)
		}
	}

	version, err := parseVersion(v.GetString("version"))
	if err != nil {
		return snmpcore.ClientConfig{}, err
	}
	authProto, err := parseAuthProtocol(v.GetString("auth_protocol"))
	if err != nil {
		return snmpcore.ClientConfig{}, err
	}
	privProto, err := parsePrivProtocol(v.GetString("priv_protocol"))
	if err != nil {
		return snmpcore.ClientConfig{}, err
	}

	return snmpcore.ClientConfig{
		Endpoint: v.GetString("endpoint"),
		Version:  version,
		Creds: snmpcore.Credentials{
			Community:    v.GetString("community"),
			Username:     v.GetString("username"),
			AuthProto:    authProto,
			AuthPassword: v.GetString("auth_password"),
			PrivProto:    privProto,
			PrivPassword: v.GetString("priv_password"),
		},
		Timeout:    v.GetDuration("timeout"),
		Retries:    v.GetInt("retries"),
		MaxMsgSize: uint32(v.GetInt("max_msg_size")),
	}, nil
}

func parseVersion(s string) (snmpcore.SnmpVersion, error) {
	switch strings.ToLower(s) {
	case "1", "v1":
		return snmpcore.V1, nil
	case "2c", "v2c", "2":
		return snmpcore.V2c, nil
	case "3", "v3":
		return snmpcore.V3, nil
	default:
		return 0, fmt.Errorf("snmpconfig: unrecognised version %q", s)
	}
}

func parseAuthProtocol(s string) (snmpcore.AuthProtocol, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return snmpcore.AuthNone, nil
	case "md5":
		return snmpcore.AuthMD5, nil
	case "sha", "sha1":
		return snmpcore.AuthSHA, nil
	default:
		return 0, fmt.Errorf("snmpconfig: unrecognised auth protocol %q", s)
	}
}

func parsePrivProtocol(s string) (snmpcore.PrivProtocol, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return snmpcore.PrivNone, nil
	case "des":
		return snmpcore.PrivDES, nil
	case "aes", "aes128":
		return snmpcore.PrivAES, nil
	default:
		return 0, fmt.Errorf("snmpconfig: unrecognised privacy protocol %q", s)
	}
}

// ParseTimeout is exposed for callers building a ClientConfig by hand from
// flag values rather than through Load.
func ParseTimeout(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
