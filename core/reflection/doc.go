// Package reflection recovers structural metadata for generated protobuf types:
// the fields of message types, the RPC methods of services and the namespace
// path of a type inside a root registry.
//
// Two metadata sources are supported. Types that carry a protobuf descriptor
// ([DescribedMessage], or a [rpc.ServiceType] built from a service descriptor)
// are read from the descriptor. Types that only expose the text of their
// generated functions ([FromObjectSourcer], prototype method sources) are
// scraped with the fixed templates in [scrape]. Scraping recovers only what the
// templates show: nested message fields of a fromObject converter and
// rpcCall-shaped service methods. Anything else is silently skipped.
//
// Results are cached per type identity in a side table, so repeated calls
// return the same *ReflectedMessageType or *ReflectedService.
//
// # Example
//
//	root, err := pbjs.LoadFile(ctx, "bundle.js")
//	if err != nil {
//	    return err
//	}
//
//	mt, err := reflection.ResolveMessage("shop.v1.Order", root)
//	switch {
//	case err != nil:
//	    return err // found, but not a message
//	case mt == nil:
//	    return nil // nothing at that path
//	}
//
//	reflected := reflection.ReflectMessage(mt, root)
//	for _, f := range reflected.FieldsArray {
//	    fmt.Println(f.ID, f.Name, f.Type)
//	}
package reflection
