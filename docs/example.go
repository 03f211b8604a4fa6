package docs

import _ "embed"

// ExampleConfig is the configuration written by 'xmf setup'.
//
//go:embed config.example.yaml
var ExampleConfig []byte
