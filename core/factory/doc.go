// Package factory holds the generic type-name registry behind every
// pluggable component in the engine, the metrics sinks foremost. A
// component is configured as a type string plus a raw settings map; its
// factory decodes the settings into a typed struct and returns the
// concrete implementation.
//
//	reg := factory.NewRegistry[io.Reader]()
//	reg.Register("file", func(conf map[string]any) (io.Reader, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return os.Open(c.Path)
//	})
//	r, err := reg.Create(factory.ModuleConfig{Type: "file", Conf: map[string]any{"path": "foo"}})
package factory
