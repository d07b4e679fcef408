package instagram

import "io"

// progressReader counts bytes as the request body is consumed.
type progressReader struct {
	reader io.Reader
	total  int64
	read   int64
	onProg func(read, total int64)
}

func (pr *progressReader) Read(p []byte) (n int, err error) {
	n, err = pr.reader.Read(p)
	pr.read += int64(n)

	if pr.onProg != nil && n > 0 {
		pr.onProg(pr.read, pr.total)
	}
	return n, err
}

func report(pr ProgressReporter, r ProgressReport) {
	if pr == nil {
		return
	}
	r.Type = ProgressReel
	pr.Report(r)
}
