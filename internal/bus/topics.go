// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bus

import "strings"

// DefaultPrefix mirrors the provider's object path.
const DefaultPrefix = "org/freedesktop/Geoclue/Providers/Hybris"

// Method names accepted on <prefix>/call/<Method>.
const (
	MethodGetStatus        = "GetStatus"
	MethodGetPosition      = "GetPosition"
	MethodGetVelocity      = "GetVelocity"
	MethodGetSatellite     = "GetSatellite"
	MethodGetLastSatellite = "GetLastSatellite"
	MethodSetOptions       = "SetOptions"
	MethodGetProviderInfo  = "GetProviderInfo"
	MethodAddReference     = "AddReference"
	MethodRemoveReference  = "RemoveReference"
	MethodShutdown         = "Shutdown"
)

// Topics builds topic names under a prefix.
type Topics struct {
	Prefix string
}

func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Topics{Prefix: prefix}
}

func (t Topics) Call(method string) string { return t.Prefix + "/call/" + method }
func (t Topics) Calls() string             { return t.Prefix + "/call/+" }
func (t Topics) Signal(name string) string { return t.Prefix + "/signal/" + name }
func (t Topics) Signals() string           { return t.Prefix + "/signal/+" }
func (t Topics) Reply(client string) string {
	return t.Prefix + "/reply/" + client
}

// Last returns the final topic level, i.e. the method or signal name.
func Last(topic string) string {
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}
