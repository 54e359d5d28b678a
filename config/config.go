/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package config provides a small layer over viper for loading application configuration
// (YAML/JSON files, readers and environment variables) into typed configuration objects.
package config

import "reflect"

// Config is a common interface for configuration objects that may be used by Loader.
type Config interface {
	SetProviderDefaults(dp DataProvider)
	Set(dp DataProvider) error
}

// KeyPrefixProvider is an interface for providing key prefix that will be used for configuration parameters.
type KeyPrefixProvider interface {
	KeyPrefix() string
}

// DataProviderFor returns a DataProvider scoped to the key prefix of cfg (if it has one).
func DataProviderFor(cfg interface{}, dp DataProvider) DataProvider {
	if kp, ok := cfg.(KeyPrefixProvider); ok && kp.KeyPrefix() != "" {
		return NewKeyPrefixedDataProvider(dp, kp.KeyPrefix())
	}
	return dp
}

// CallSetProviderDefaultsForFields calls SetProviderDefaults for every exported non-nil field
// of the struct pointed by obj that implements Config.
// It allows composing configuration objects from nested sections.
func CallSetProviderDefaultsForFields(obj interface{}, dp DataProvider) {
	for _, c := range nestedConfigs(obj) {
		c.SetProviderDefaults(DataProviderFor(c, dp))
	}
}

// CallSetForFields calls Set for every exported non-nil field
// of the struct pointed by obj that implements Config.
func CallSetForFields(obj interface{}, dp DataProvider) error {
	for _, c := range nestedConfigs(obj) {
		if err := c.Set(DataProviderFor(c, dp)); err != nil {
			return err
		}
	}
	return nil
}

func nestedConfigs(obj interface{}) []Config {
	el := reflect.ValueOf(obj).Elem()
	var res []Config
	for i := 0; i < el.NumField(); i++ {
		if !el.Type().Field(i).IsExported() {
			continue
		}
		field := el.Field(i)
		if field.Kind() == reflect.Ptr && field.IsNil() {
			continue
		}
		if c, ok := field.Interface().(Config); ok {
			res = append(res, c)
		}
	}
	return res
}
