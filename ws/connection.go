package ws

import (
	"bytes"
	"compress/flate"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/gobwas/httphead"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsflate"
	"github.com/gobwas/ws/wsutil"

	"longform.lol/chk"
	"longform.lol/context"
	"longform.lol/errorf"
	"longform.lol/log"
)

// Connection is one outbound websocket to a relay, with permessage-deflate
// when the relay agrees to it.
//
// Reads and writes may run concurrently with each other but not with
// themselves.
type Connection struct {
	conn        net.Conn
	compress    bool
	control     wsutil.FrameHandlerFunc
	reader      *wsutil.Reader
	flateReader *wsflate.Reader
	msgStateR   *wsflate.MessageState
	writer      *wsutil.Writer
	flateWriter *wsflate.Writer
	msgStateW   *wsflate.MessageState
	wmx         sync.Mutex
}

// NewConnection dials url, which must be a ws:// or wss:// address.
func NewConnection(c context.T, url string, requestHeader http.Header,
	tlsConfig *tls.Config) (cn *Connection, err error) {

	dialer := ws.Dialer{
		Header:     ws.HandshakeHeaderHTTP(requestHeader),
		Extensions: []httphead.Option{wsflate.DefaultParameters.Option()},
		TLSConfig:  tlsConfig,
	}
	conn, br, hs, err := dialer.Dial(c, url)
	if err != nil {
		err = errorf.D("%w: dial %s: %w", ErrConnection, url, err)
		return
	}
	var source io.Reader = conn
	if br != nil {
		// the relay spoke before we did, those bytes are already buffered
		source = io.MultiReader(br, conn)
	}
	state := ws.StateClientSide
	cn = &Connection{conn: conn, msgStateR: &wsflate.MessageState{},
		msgStateW: &wsflate.MessageState{}}
	for _, ext := range hs.Extensions {
		if string(ext.Name) == wsflate.ExtensionName {
			cn.compress = true
			state |= ws.StateExtended
			break
		}
	}
	if cn.compress {
		cn.msgStateR.SetCompressed(true)
		cn.flateReader = wsflate.NewReader(nil, func(r io.Reader) wsflate.Decompressor {
			return flate.NewReader(r)
		})
		cn.msgStateW.SetCompressed(true)
		cn.flateWriter = wsflate.NewWriter(nil, func(w io.Writer) wsflate.Compressor {
			fw, err := flate.NewWriter(w, 4)
			if chk.E(err) {
				log.E.F("flate writer for %s: %v", url, err)
			}
			return fw
		})
	}
	cn.control = wsutil.ControlFrameHandler(conn, ws.StateClientSide)
	cn.reader = &wsutil.Reader{
		Source:         source,
		State:          state,
		OnIntermediate: cn.control,
		Extensions:     []wsutil.RecvExtension{cn.msgStateR},
	}
	cn.writer = wsutil.NewWriter(conn, state, ws.OpText)
	cn.writer.SetExtensions(cn.msgStateW)
	return
}

// WriteMessage sends one text message.
func (cn *Connection) WriteMessage(c context.T, data []byte) (err error) {
	if err = c.Err(); err != nil {
		return
	}
	cn.wmx.Lock()
	defer cn.wmx.Unlock()
	if cn.compress && cn.msgStateW.IsCompressed() {
		cn.flateWriter.Reset(cn.writer)
		if _, err = io.Copy(cn.flateWriter, bytes.NewReader(data)); chk.T(err) {
			return errorf.T("write message: %w", err)
		}
		if err = cn.flateWriter.Close(); chk.T(err) {
			return errorf.T("close flate writer: %w", err)
		}
	} else {
		if _, err = io.Copy(cn.writer, bytes.NewReader(data)); chk.T(err) {
			return errorf.T("write message: %w", err)
		}
	}
	if err = cn.writer.Flush(); chk.T(err) {
		return errorf.T("flush writer: %w", err)
	}
	return
}

// Ping sends a ping control frame.
func (cn *Connection) Ping() (err error) {
	cn.wmx.Lock()
	defer cn.wmx.Unlock()
	return wsutil.WriteClientMessage(cn.conn, ws.OpPing, nil)
}

// ReadMessage copies the next data message into buf, answering control frames
// on the way.
func (cn *Connection) ReadMessage(c context.T, buf io.Writer) (err error) {
	for {
		if err = c.Err(); err != nil {
			return
		}
		var h ws.Header
		if h, err = cn.reader.NextFrame(); err != nil {
			_ = cn.conn.Close()
			return errorf.T("advance frame: %w", err)
		}
		if h.OpCode.IsControl() {
			cn.wmx.Lock()
			err = cn.control(h, cn.reader)
			cn.wmx.Unlock()
			if chk.T(err) {
				return errorf.T("control frame: %w", err)
			}
			continue
		}
		if h.OpCode == ws.OpText || h.OpCode == ws.OpBinary {
			break
		}
		if err = cn.reader.Discard(); chk.T(err) {
			return errorf.T("discard: %w", err)
		}
	}
	if cn.compress && cn.msgStateR.IsCompressed() {
		cn.flateReader.Reset(cn.reader)
		_, err = io.Copy(buf, cn.flateReader)
	} else {
		_, err = io.Copy(buf, cn.reader)
	}
	if chk.T(err) {
		return errorf.T("read message: %w", err)
	}
	return
}

func (cn *Connection) Close() error { return cn.conn.Close() }
