// Package config loads declarative topology documents.
//
// A document is YAML describing a state tree and the components built on
// it. Parse validates the document against an embedded JSON Schema before
// decoding, so structural mistakes surface as one config error instead of
// a partially built topology.
//
// Guards, actions, and entry/exit hooks appear in documents as names.
// Build resolves them through an explicit Bindings map supplied by the
// host program; there is no dynamic symbol lookup, and an unbound name is
// a build error.
//
//	doc, err := config.Load("topology.yaml")
//	registry, comps, err := config.Build(doc, config.Bindings{
//	    Guards:  map[string]statemachine.Guard{"has_payload": hasPayload},
//	    Actions: map[string]statemachine.Action{"notify": notify},
//	})
package config
