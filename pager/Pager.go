// Package pager implements the fixed-capacity page cache that sits between
// the B+-tree node layer and the backing database file. It knows nothing
// about rows, keys, or node headers — only 4096-byte page images addressed
// by a zero-based page number.
package pager

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

const (
	// PageMaxNums bounds how many distinct pages this store can ever
	// address. There is no eviction, so the cache is sized to hold every
	// page the system can allocate over its lifetime.
	PageMaxNums = 64
	PageSize    = 4096
)

// ErrTableFull is returned by AllocatePage once PageMaxNums pages have
// already been handed out.
var ErrTableFull = errors.New("table reach max size")

// ErrPageOutOfRange is returned by GetPage when asked for a page number
// that the cache can never hold. Requesting one is a fatal, not a
// retryable, condition.
var ErrPageOutOfRange = errors.New("page number out of range")

type Page struct {
	Data    [PageSize]byte
	Pager   *Pager
	PageNum uint32
	Dirty   bool
}

// Pager owns the open file handle and the slot array. Each slot is either
// nil (never loaded) or a fully materialized in-memory page image.
type Pager struct {
	File     *os.File
	Pages    []*Page
	NumPages int
}

func (p *Pager) FileSize() (int64, error) {
	fi, err := p.File.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "pager: stat")
	}
	return fi.Size(), nil
}

// OpenPager opens (or creates) the backing file and computes how many
// pages it currently holds, without reading any of them in — pages are
// faulted in lazily by GetPage.
func OpenPager(path string) (*Pager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, errors.Wrap(err, "pager: open")
	}
	fi, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "pager: stat")
	}
	fileSize := fi.Size()
	numPages := int((fileSize + PageSize - 1) / PageSize)

	p := &Pager{
		File:     f,
		Pages:    make([]*Page, numPages),
		NumPages: numPages,
	}
	return p, nil
}

// loadPageFromDisk handles the raw seek+read and returns a fresh Page. A
// short read at EOF (the file's last page was never fully written) is not
// an error: the remainder of Data stays zeroed.
func (p *Pager) loadPageFromDisk(pageNum uint32) (*Page, error) {
	off := int64(pageNum) * PageSize
	if _, err := p.File.Seek(off, io.SeekStart); err != nil {
		return nil, errors.Wrapf(err, "pager: seek page %d", pageNum)
	}
	pg := &Page{
		Pager:   p,
		PageNum: pageNum,
	}
	if _, err := io.ReadFull(p.File, pg.Data[:]); err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, errors.Wrapf(err, "pager: read page %d", pageNum)
	}
	return pg, nil
}

// GetPage returns the in-memory image for pageNum, loading it from disk on
// first access. The returned *Page is shared: callers mutate Data in place
// and set Dirty themselves.
func (p *Pager) GetPage(pageNum uint32) (*Page, error) {
	if pageNum >= PageMaxNums {
		return nil, errors.Wrapf(ErrPageOutOfRange, "page %d (max %d)", pageNum, PageMaxNums)
	}
	if pageNum >= uint32(p.NumPages) {
		return nil, errors.Errorf("pager: page %d beyond EOF (%d pages)", pageNum, p.NumPages)
	}
	if p.Pages[pageNum] == nil {
		pg, err := p.loadPageFromDisk(pageNum)
		if err != nil {
			return nil, err
		}
		p.Pages[pageNum] = pg
	}
	return p.Pages[pageNum], nil
}

// AllocatePage reserves the next never-before-seen page number, installs a
// zeroed dirty slot for it, and grows the page count. It fails with
// ErrTableFull once the cache is exhausted.
func (p *Pager) AllocatePage() (uint32, error) {
	np := uint32(p.NumPages)
	if np >= PageMaxNums {
		return 0, ErrTableFull
	}
	pg := &Page{
		Pager:   p,
		PageNum: np,
		Dirty:   true,
	}
	p.Pages = append(p.Pages, pg)
	p.NumPages++
	return np, nil
}

// FlushPage writes slot pgNo's image to its file offset. It is a no-op if
// the slot was never populated or carries no unwritten changes.
func (p *Pager) FlushPage(pgNo uint32) error {
	pg := p.Pages[pgNo]
	if pg == nil || !pg.Dirty {
		return nil
	}
	off := int64(pgNo) * PageSize
	if _, err := p.File.Seek(off, io.SeekStart); err != nil {
		return errors.Wrapf(err, "pager: seek page %d", pgNo)
	}
	if _, err := p.File.Write(pg.Data[:]); err != nil {
		return errors.Wrapf(err, "pager: write page %d", pgNo)
	}
	pg.Dirty = false
	return nil
}

// FlushAll writes every populated, dirty slot and syncs the file.
func (p *Pager) FlushAll() error {
	for i, pg := range p.Pages {
		if pg != nil && pg.Dirty {
			if err := p.FlushPage(uint32(i)); err != nil {
				return err
			}
		}
	}
	return errors.Wrap(p.File.Sync(), "pager: sync")
}

// Close flushes every populated page and closes the underlying file.
func (p *Pager) Close() error {
	if err := p.FlushAll(); err != nil {
		return err
	}
	return errors.Wrap(p.File.Close(), "pager: close")
}
