package webhook

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// ErrMalformed marks a request body that is not a usable multipart delivery.
var ErrMalformed = errors.New("webhook: malformed multipart body")

// MaxAttachments bounds attachment-count. The form is parsed before the
// signature is checked, so the declared count is untrusted.
const MaxAttachments = 50

// Delivery is one inbound email forwarded by the mail provider.
type Delivery struct {
	Timestamp string
	Token     string
	Signature string

	Sender    string
	Recipient string
	Subject   string
	MessageID string

	Attachments []Attachment
}

// Attachment is one declared file part. Open is nil when the part was declared
// by attachment-count but missing from the body.
type Attachment struct {
	Index       int
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// ParseDelivery reads the multipart form fields of an inbound email delivery.
// maxMemory bounds how much of the body is buffered in memory before spilling to disk.
func ParseDelivery(r *http.Request, maxMemory int64) (Delivery, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return Delivery{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	form := r.MultipartForm

	d := Delivery{
		Timestamp: formValue(form, "timestamp"),
		Token:     formValue(form, "token"),
		Signature: formValue(form, "signature"),
		Sender:    formValue(form, "sender"),
		Recipient: formValue(form, "recipient"),
		Subject:   formValue(form, "subject"),
		MessageID: firstNonEmpty(formValue(form, "Message-Id"), formValue(form, "message-id"), formValue(form, "Message-ID")),
	}

	indexes, err := attachmentIndexes(form)
	if err != nil {
		return Delivery{}, err
	}
	for _, n := range indexes {
		a := Attachment{Index: n}
		if files := form.File["attachment-"+strconv.Itoa(n)]; len(files) > 0 {
			fh := files[0]
			a.Filename = fh.Filename
			a.ContentType = fh.Header.Get("Content-Type")
			a.Size = fh.Size
			a.Open = func() (io.ReadCloser, error) { return fh.Open() }
		}
		d.Attachments = append(d.Attachments, a)
	}
	return d, nil
}

// attachmentIndexes honours attachment-count when present, otherwise it
// collects every attachment-<n> file part.
func attachmentIndexes(form *multipart.Form) ([]int, error) {
	if raw := formValue(form, "attachment-count"); raw != "" {
		count, err := strconv.Atoi(raw)
		if err != nil || count < 0 {
			return nil, fmt.Errorf("%w: invalid attachment-count %q", ErrMalformed, raw)
		}
		if count > MaxAttachments {
			return nil, fmt.Errorf("%w: attachment-count %d exceeds %d", ErrMalformed, count, MaxAttachments)
		}
		out := make([]int, 0, count)
		for i := 1; i <= count; i++ {
			out = append(out, i)
		}
		return out, nil
	}

	var out []int
	for name := range form.File {
		rest, ok := strings.CutPrefix(name, "attachment-")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(rest); err == nil && n > 0 {
			out = append(out, n)
		}
	}
	if len(out) > MaxAttachments {
		return nil, fmt.Errorf("%w: more than %d attachments", ErrMalformed, MaxAttachments)
	}
	sort.Ints(out)
	return out, nil
}

func formValue(form *multipart.Form, key string) string {
	if form == nil {
		return ""
	}
	if vs := form.Value[key]; len(vs) > 0 {
		return strings.TrimSpace(vs[0])
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
