// Package link ties a transport, the frame codec, the packet catalog and the
// dispatcher into one connection to a local module.
//
// Inbound bytes flow transport -> codec.Assembler -> packet.Parse ->
// dispatcher. Outbound packets are encoded with codec.EncodeFrame and written
// to the transport under a write lock, one complete frame per Write.
//
//	tr, _ := transport.New(cfg.TransportOptions())
//	l := link.New(tr, link.Options{Mode: codec.ModeAPI})
//	if err := l.Open(ctx); err != nil {
//	    return err
//	}
//	go l.Run(ctx)
//	defer l.Close()
//
//	reply, err := l.SendAndAwait(ctx, atCmd, 0)
//
// Frames that fail to assemble or parse never stop the link: they are logged
// and reported to ErrorListeners.
package link
