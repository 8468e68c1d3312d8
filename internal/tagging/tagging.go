package tagging

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bogem/id3v2/v2"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/meta"
)

// ErrUnsupportedFormat is returned for any extension Embed doesn't know how
// to tag. Callers treat its absence as non-fatal.
var ErrUnsupportedFormat = fmt.Errorf("unsupported audio format")

// Meta is the tag embedder's input contract: everything a download_track
// handler knows about a track at the point tagging runs, independent of
// how the catalog store happens to shape its own Track rows.
type Meta struct {
	Title       string
	Album       string
	Artists     []string
	AlbumArtist string
	TrackNumber int
	Year        string
	LyricsPath  string
	CoverPath   string
}

// Embed writes title/album/artist/track-number/year tags (and, when
// available, embedded cover art and lyrics) to the audio file at audioPath.
// Embedding is idempotent: re-running with identical metadata is a no-op on
// FLAC (detected via metadataChanged) and a plain overwrite on MP3. MP4/M4A
// files are not tagged: Embed returns ErrUnsupportedFormat for them.
func Embed(audioPath string, m Meta) error {
	var coverData []byte
	if m.CoverPath != "" {
		data, err := os.ReadFile(m.CoverPath)
		if err == nil {
			coverData = data
		}
	}

	var lyrics string
	if m.LyricsPath != "" {
		if data, err := os.ReadFile(m.LyricsPath); err == nil {
			lyrics = string(data)
		}
	}

	ext := strings.ToLower(filepath.Ext(audioPath))
	switch ext {
	case ".flac":
		return tagFLAC(audioPath, m, coverData, lyrics)
	case ".mp3":
		return tagMP3(audioPath, m, coverData, lyrics)
	case ".mp4", ".m4a":
		return tagMP4(audioPath, m, coverData, lyrics)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// tagFLAC rewrites a FLAC file with new metadata while preserving audio
// frames verbatim. Strategy:
//  1. Open the file raw to copy the original STREAMINFO bytes exactly — any
//     bit-packing mistake here makes downstream players reject the file
//     silently.
//  2. Parse metadata with flac.ParseFile to enumerate existing blocks and
//     find where audio starts.
//  3. Build new metadata: verbatim STREAMINFO + optional SeekTable + fresh
//     VorbisComment + optional Picture.
//  4. Atomic write: temp file → rename.
func tagFLAC(filePath string, m Meta, coverData []byte, lyrics string) error {
	rawFile, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open flac file: %w", err)
	}
	defer func() { _ = rawFile.Close() }()

	magic := make([]byte, 4)
	if _, rErr := io.ReadFull(rawFile, magic); rErr != nil {
		return fmt.Errorf("read fLaC magic: %w", rErr)
	}
	if string(magic) != "fLaC" {
		return fmt.Errorf("not a valid flac file: %s", filePath)
	}

	rawStreamInfo := make([]byte, 38)
	if _, rErr := io.ReadFull(rawFile, rawStreamInfo); rErr != nil {
		return fmt.Errorf("read streaminfo: %w", rErr)
	}

	stream, err := flac.ParseFile(filePath)
	if err != nil {
		return fmt.Errorf("parse flac metadata: %w", err)
	}
	audioOffset := calcAudioOffset(stream)

	var seekTableBlock *meta.Block
	for _, b := range stream.Blocks {
		if b.Type == meta.TypeSeekTable {
			seekTableBlock = b
			break
		}
	}
	if cErr := stream.Close(); cErr != nil {
		return fmt.Errorf("close flac stream: %w", cErr)
	}

	vc := newVorbisComment(m, lyrics)
	vcBody, err := encodeVorbisComment(vc)
	if err != nil {
		return err
	}

	var picBody []byte
	if len(coverData) > 0 {
		picBody, err = encodePictureData(coverData)
		if err != nil {
			return err
		}
	}

	changed, err := metadataChanged(filePath, vcBody, picBody)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	var metaBuf bytes.Buffer

	siHeader := rawStreamInfo[0] & 0x7F
	metaBuf.WriteByte(siHeader)
	metaBuf.Write(rawStreamInfo[1:])

	type rawBlock struct {
		body      []byte
		blockType byte
	}
	var blocks []rawBlock

	if seekTableBlock != nil {
		body, encErr := encodeSeekTable(seekTableBlock.Body.(*meta.SeekTable))
		if encErr != nil {
			return encErr
		}
		blocks = append(blocks, rawBlock{body: body, blockType: byte(meta.TypeSeekTable)})
	}

	blocks = append(blocks, rawBlock{body: vcBody, blockType: byte(meta.TypeVorbisComment)})

	if len(picBody) > 0 {
		blocks = append(blocks, rawBlock{body: picBody, blockType: byte(meta.TypePicture)})
	}

	for i, blk := range blocks {
		isLast := i == len(blocks)-1
		if wErr := writeRawBlock(&metaBuf, blk.blockType, blk.body, isLast); wErr != nil {
			return wErr
		}
	}

	if len(blocks) == 0 {
		b := metaBuf.Bytes()
		b[0] |= 0x80
	}

	if _, seekErr := rawFile.Seek(audioOffset, io.SeekStart); seekErr != nil {
		return seekErr
	}

	dir := filepath.Dir(filePath)
	tmpFile, tmpErr := os.CreateTemp(dir, "*.flac.tmp")
	if tmpErr != nil {
		return tmpErr
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write([]byte("fLaC")); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if _, err := tmpFile.Write(metaBuf.Bytes()); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if _, err := io.Copy(tmpFile, rawFile); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		return err
	}

	now := time.Now()
	if err := os.Chtimes(filePath, now, now); err != nil {
		return err
	}
	if dirHandle, err := os.Open(dir); err == nil {
		_ = dirHandle.Sync()
		_ = dirHandle.Close()
	}

	success = true
	return nil
}

func metadataChanged(filePath string, newVC []byte, newPic []byte) (bool, error) {
	stream, err := flac.ParseFile(filePath)
	if err != nil {
		return false, err
	}
	defer func() { _ = stream.Close() }()

	var currentVC []byte
	var currentPic []byte

	for _, b := range stream.Blocks {
		switch b.Type {
		case meta.TypeVorbisComment:
			body, err := encodeVorbisComment(b.Body.(*meta.VorbisComment))
			if err != nil {
				return false, err
			}
			currentVC = body
		case meta.TypePicture:
			p := b.Body.(*meta.Picture)
			body, err := encodePictureData(p.Data)
			if err != nil {
				return false, err
			}
			currentPic = body
		}
	}

	if !bytes.Equal(currentVC, newVC) {
		return true, nil
	}
	if len(newPic) > 0 && !bytes.Equal(currentPic, newPic) {
		return true, nil
	}
	return false, nil
}

// writeRawBlock writes a single metadata block to w.
// [1-byte flags (last<<7 | type)] [3-byte big-endian body length] [body]
func writeRawBlock(w *bytes.Buffer, blockType byte, body []byte, isLast bool) error {
	length := len(body)
	if length > 0xFFFFFF {
		return fmt.Errorf("metadata block too large")
	}
	flags := blockType & 0x7F
	if isLast {
		flags |= 0x80
	}
	w.WriteByte(flags)
	w.WriteByte(byte(length >> 16))
	w.WriteByte(byte(length >> 8))
	w.WriteByte(byte(length))
	w.Write(body)
	return nil
}

// calcAudioOffset returns the byte offset where audio frames begin.
//
// Layout:
//
//	[4]  "fLaC" magic
//	[4]  STREAMINFO header
//	[34] STREAMINFO body  (always 34 bytes)
//	For each additional block:
//	  [4]  block header (1 flag byte + 3 length bytes)
//	  [N]  block body
//
// mewkiz/flac exposes STREAMINFO in stream.Info only — it is NOT in
// stream.Blocks — so it's accounted for explicitly.
func calcAudioOffset(stream *flac.Stream) int64 {
	offset := int64(4)
	offset += 4 + 34
	for _, b := range stream.Blocks {
		offset += 4 + int64(b.Length)
	}
	return offset
}

// encodeSeekTable encodes the seek table block body (18 bytes per point).
func encodeSeekTable(st *meta.SeekTable) ([]byte, error) {
	buf := make([]byte, len(st.Points)*18)
	for i, p := range st.Points {
		off := i * 18
		binary.BigEndian.PutUint64(buf[off:off+8], p.SampleNum)
		binary.BigEndian.PutUint64(buf[off+8:off+16], p.Offset)
		binary.BigEndian.PutUint16(buf[off+16:off+18], p.NSamples)
	}
	return buf, nil
}

// encodeVorbisComment encodes a VorbisComment block body.
// Framing: all lengths are 32-bit little-endian; strings are UTF-8.
func encodeVorbisComment(vc *meta.VorbisComment) ([]byte, error) {
	var buf bytes.Buffer
	writeLE32 := func(n uint32) {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], n)
		buf.Write(b[:])
	}

	vendor := []byte(vc.Vendor)
	writeLE32(uint32(len(vendor)))
	buf.Write(vendor)

	writeLE32(uint32(len(vc.Tags)))
	for _, tag := range vc.Tags {
		entry := []byte(tag[0] + "=" + tag[1])
		writeLE32(uint32(len(entry)))
		buf.Write(entry)
	}
	return buf.Bytes(), nil
}

// encodePictureData encodes a cover-art Picture block body from raw image
// bytes.
func encodePictureData(data []byte) ([]byte, error) {
	mime := http.DetectContentType(data)
	if idx := strings.Index(mime, ";"); idx != -1 {
		mime = strings.TrimSpace(mime[:idx])
	}
	mimeBytes := []byte(mime)
	desc := []byte("Front Cover")

	var buf bytes.Buffer
	write32 := func(v uint32) {
		b := [4]byte{}
		binary.BigEndian.PutUint32(b[:], v)
		buf.Write(b[:])
	}

	write32(3)
	write32(uint32(len(mimeBytes)))
	buf.Write(mimeBytes)
	write32(uint32(len(desc)))
	buf.Write(desc)
	write32(0)
	write32(0)
	write32(0)
	write32(0)
	write32(uint32(len(data)))
	buf.Write(data)

	return buf.Bytes(), nil
}

// newVorbisComment builds a populated VorbisComment from Meta.
func newVorbisComment(m Meta, lyrics string) *meta.VorbisComment {
	vc := &meta.VorbisComment{Vendor: "catalogd"}

	add := func(name, value string) {
		if value != "" {
			vc.Tags = append(vc.Tags, [2]string{name, value})
		}
	}

	add("TITLE", m.Title)
	for _, a := range m.Artists {
		add("ARTIST", a)
	}
	add("ALBUMARTIST", m.AlbumArtist)
	add("ALBUM", m.Album)
	if m.TrackNumber > 0 {
		add("TRACKNUMBER", fmt.Sprintf("%d", m.TrackNumber))
	}
	add("DATE", m.Year)
	if lyrics != "" {
		add("LYRICS", lyrics)
	}

	return vc
}

// ── MP3 ──────────────────────────────────────────────────────────────────

// tagMP3 writes ID3v2.4 tags to an MP3 file. Synced lyrics already live
// alongside the audio file as a .lrc sidecar; MP3 tagging does not
// duplicate them into an embedded frame.
func tagMP3(filePath string, m Meta, coverData []byte, _ string) error {
	tag, err := id3v2.Open(filePath, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open mp3 file: %w", err)
	}
	defer func() { _ = tag.Close() }()

	tag.SetVersion(4)

	if m.Title != "" {
		tag.SetTitle(m.Title)
	}
	if len(m.Artists) > 0 {
		tag.AddTextFrame("TPE1", tag.DefaultEncoding(), strings.Join(m.Artists, "\x00"))
	}
	if m.Album != "" {
		tag.SetAlbum(m.Album)
	}
	if m.Year != "" {
		tag.SetYear(m.Year)
	}
	if m.AlbumArtist != "" {
		tag.AddTextFrame(tag.CommonID("Band/Orchestra/Accompaniment"), tag.DefaultEncoding(), m.AlbumArtist)
	}
	if m.TrackNumber > 0 {
		tag.AddTextFrame(tag.CommonID("Track number/Position in set"), tag.DefaultEncoding(), fmt.Sprintf("%d", m.TrackNumber))
	}
	if len(coverData) > 0 {
		mime := http.DetectContentType(coverData)
		if idx := strings.Index(mime, ";"); idx != -1 {
			mime = strings.TrimSpace(mime[:idx])
		}
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    mime,
			PictureType: id3v2.PTFrontCover,
			Description: "Front Cover",
			Picture:     coverData,
		})
	}

	return tag.Save()
}

// ── MP4 ──────────────────────────────────────────────────────────────────

// tagMP4 is not yet implemented; the extractor rarely produces m4a output
// for this catalog's sources, so this is a documented gap rather than a
// silent one.
func tagMP4(_ string, _ Meta, _ []byte, _ string) error {
	return fmt.Errorf("%w: m4a tagging", ErrUnsupportedFormat)
}
