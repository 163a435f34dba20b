// Package zkproto implements the punch clock's native binary socket protocol:
// magic-prefixed frames with a 16-bit checksum, session/reply counters, and
// chunked data transfers. Default device port is 4370.
package zkproto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"time"
)

// Options tunes transport behavior per connection.
type Options struct {
	DialTimeout time.Duration
	ReadTimeout time.Duration
}

func (o *Options) fill() {
	if o.DialTimeout == 0 {
		o.DialTimeout = 10 * time.Second
	}
	if o.ReadTimeout == 0 {
		o.ReadTimeout = 15 * time.Second
	}
}

// Client is a stateful connection to one device. It is not safe for
// concurrent use; the sync service serializes access per device.
type Client struct {
	conn        net.Conn
	addr        string
	session     uint16
	reply       uint16
	readTimeout time.Duration
}

// Dial opens the transport and performs the connect handshake.
// Callers must Close the client on every exit path; the device keeps the
// physical slot occupied until it sees the exit command or the socket drops.
func Dial(addr string, opts Options) (*Client, error) {
	opts.fill()
	conn, err := net.DialTimeout("tcp", addr, opts.DialTimeout)
	if err != nil {
		return nil, &ConnectionError{Addr: addr, Err: err}
	}

	c := &Client{conn: conn, addr: addr, readTimeout: opts.ReadTimeout}
	resp, err := c.roundTrip(cmdConnect, nil)
	if err != nil {
		conn.Close()
		return nil, &ConnectionError{Addr: addr, Err: err}
	}
	if resp.command != cmdAckOK {
		conn.Close()
		return nil, &ConnectionError{Addr: addr, Err: fmt.Errorf("handshake rejected with command %d", resp.command)}
	}
	c.session = resp.session
	return c, nil
}

// Close sends the exit command and tears the socket down. Safe to call more
// than once.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	// best effort; the device releases the slot on socket close anyway
	_, _ = c.roundTrip(cmdExit, nil)
	err := c.conn.Close()
	c.conn = nil
	return err
}

// FetchUsers enumerates users registered on the device.
func (c *Client) FetchUsers() ([]Record, error) {
	payload, err := c.fetchData(cmdUserList)
	if err != nil {
		return nil, err
	}
	return DecodeRecords(payload)
}

// FetchLogs pulls the attendance log, retrying up to retries times with
// backoff. These devices are known to time out or return garbage under large
// log volumes, so timeouts and malformed payloads are both retried.
func (c *Client) FetchLogs(retries int) ([]Record, error) {
	if retries < 1 {
		retries = 1
	}
	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		payload, err := c.fetchData(cmdAttLogList)
		if err == nil {
			records, decErr := DecodeRecords(payload)
			if decErr == nil {
				return records, nil
			}
			err = decErr
		}
		lastErr = err
		if !retryable(err) {
			return nil, err
		}
		if attempt < retries {
			time.Sleep(time.Duration(attempt) * 750 * time.Millisecond)
		}
	}
	return nil, &TimeoutError{Op: "attendance log fetch", Attempts: retries, Err: lastErr}
}

// ClearLogs wipes the attendance log stored on the device.
func (c *Client) ClearLogs() error {
	resp, err := c.roundTrip(cmdClearAttLog, nil)
	if err != nil {
		return err
	}
	if resp.command != cmdAckOK {
		return fmt.Errorf("clear logs rejected with command %d", resp.command)
	}
	return nil
}

// GetTime reads the device clock.
func (c *Client) GetTime() (time.Time, error) {
	resp, err := c.roundTrip(cmdGetTime, nil)
	if err != nil {
		return time.Time{}, err
	}
	if (resp.command != cmdAckOK && resp.command != cmdAckData) || len(resp.data) < 4 {
		return time.Time{}, &UnexpectedResponseError{Detail: fmt.Sprintf("get time replied command %d with %d bytes", resp.command, len(resp.data))}
	}
	return decodeTime(binary.LittleEndian.Uint32(resp.data[:4])), nil
}

// SetTime writes the device clock.
func (c *Client) SetTime(t time.Time) error {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, encodeTime(t))
	resp, err := c.roundTrip(cmdSetTime, buf)
	if err != nil {
		return err
	}
	if resp.command != cmdAckOK {
		return fmt.Errorf("set time rejected with command %d", resp.command)
	}
	return nil
}

// roundTrip sends one command frame and reads the device's reply.
func (c *Client) roundTrip(command uint16, data []byte) (frame, error) {
	if c.conn == nil {
		return frame{}, errors.New("connection closed")
	}
	c.reply++
	req := frame{command: command, session: c.session, reply: c.reply, data: data}

	deadline := time.Now().Add(c.readTimeout)
	if err := c.conn.SetDeadline(deadline); err != nil {
		return frame{}, err
	}
	if _, err := c.conn.Write(req.marshal()); err != nil {
		return frame{}, err
	}
	return readFrame(c.conn)
}

// fetchData runs a list command and reassembles the reply, which arrives
// either inline (ack-data) or as a prepare-data announcement followed by
// data chunks.
func (c *Client) fetchData(command uint16) ([]byte, error) {
	resp, err := c.roundTrip(command, nil)
	if err != nil {
		return nil, err
	}

	switch resp.command {
	case cmdAckData:
		return resp.data, nil
	case cmdPrepareData:
		if len(resp.data) < 4 {
			return nil, &UnexpectedResponseError{Detail: "prepare-data frame without size"}
		}
		total := binary.LittleEndian.Uint32(resp.data[:4])
		if total > maxFrameSize {
			return nil, &UnexpectedResponseError{Detail: fmt.Sprintf("announced data size %d too large", total)}
		}
		buf := make([]byte, 0, total)
		for uint32(len(buf)) < total {
			_ = c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
			chunk, err := readFrame(c.conn)
			if err != nil {
				return nil, err
			}
			switch chunk.command {
			case cmdData:
				buf = append(buf, chunk.data...)
			case cmdAckOK:
				// device finished early; accept what arrived
				return buf, nil
			default:
				return nil, &UnexpectedResponseError{Detail: fmt.Sprintf("command %d inside data transfer", chunk.command)}
			}
		}
		return buf, nil
	case cmdAckError:
		return nil, fmt.Errorf("device rejected command %d", command)
	default:
		return nil, &UnexpectedResponseError{Detail: fmt.Sprintf("list command %d replied with command %d", command, resp.command)}
	}
}

// retryable reports whether err is the transient kind FetchLogs should retry:
// network timeouts and malformed/empty payloads.
func retryable(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	var uerr *UnexpectedResponseError
	return errors.As(err, &uerr)
}
