package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"path"
	"time"

	"github.com/jlaffaye/ftp"
)

// FTPConfig describes the remote FTP location used by FTPStore.
type FTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Path     string
	Timeout  time.Duration
}

// FTPStore keeps blobs on an FTP server under Path/<kind>/<name>.
// Each operation opens its own connection.
type FTPStore struct {
	cfg FTPConfig
}

// NewFTPStore checks connectivity and creates the kind directories.
func NewFTPStore(ctx context.Context, cfg FTPConfig) (*FTPStore, error) {
	if cfg.Host == "" {
		return nil, unavailable("ftp", errors.New("FTP_HOST is not set"))
	}
	if cfg.Port == 0 {
		cfg.Port = 21
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	s := &FTPStore{cfg: cfg}

	conn, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Quit()
	for _, k := range Kinds {
		// MakeDir fails when the directory already exists.
		_ = conn.MakeDir(path.Join(cfg.Path, string(k)))
	}
	return s, nil
}

func (s *FTPStore) dial(ctx context.Context) (*ftp.ServerConn, error) {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(s.cfg.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, unavailable("ftp connect", err)
	}
	if err := conn.Login(s.cfg.Username, s.cfg.Password); err != nil {
		conn.Quit()
		return nil, unavailable("ftp login", err)
	}
	return conn, nil
}

func (s *FTPStore) remote(kind Kind, name string) string {
	return path.Join(s.cfg.Path, string(kind), name)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (s *FTPStore) Put(ctx context.Context, kind Kind, name string, r io.Reader) (int64, error) {
	if err := checkName(kind, name); err != nil {
		return 0, err
	}
	conn, err := s.dial(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Quit()

	cr := &countingReader{r: r}
	if err := conn.Stor(s.remote(kind, name), cr); err != nil {
		return 0, unavailable("ftp store", err)
	}
	return cr.n, nil
}

// ftpFile keeps the control connection open until the transfer is read.
type ftpFile struct {
	*ftp.Response
	conn *ftp.ServerConn
}

func (f *ftpFile) Close() error {
	err := f.Response.Close()
	f.conn.Quit()
	return err
}

func (s *FTPStore) Open(ctx context.Context, kind Kind, name string) (io.ReadCloser, error) {
	if err := checkName(kind, name); err != nil {
		return nil, err
	}
	conn, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := conn.Retr(s.remote(kind, name))
	if err != nil {
		conn.Quit()
		if isFileUnavailable(err) {
			return nil, ErrNotFound
		}
		return nil, unavailable("ftp retrieve", err)
	}
	return &ftpFile{Response: resp, conn: conn}, nil
}

func (s *FTPStore) Exists(ctx context.Context, kind Kind, name string) (bool, error) {
	if err := checkName(kind, name); err != nil {
		return false, err
	}
	conn, err := s.dial(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Quit()

	if _, err := conn.FileSize(s.remote(kind, name)); err != nil {
		if isFileUnavailable(err) {
			return false, nil
		}
		return false, unavailable("ftp size", err)
	}
	return true, nil
}

func (s *FTPStore) Delete(ctx context.Context, kind Kind, name string) error {
	if err := checkName(kind, name); err != nil {
		return err
	}
	conn, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Quit()

	if err := conn.Delete(s.remote(kind, name)); err != nil {
		if isFileUnavailable(err) {
			return ErrNotFound
		}
		return unavailable("ftp delete", err)
	}
	return nil
}

func isFileUnavailable(err error) bool {
	var tpErr *textproto.Error
	return errors.As(err, &tpErr) && tpErr.Code == ftp.StatusFileUnavailable
}
