package youtube

import (
	"context"
	"errors"
	"sync"
)

var errFake = errors.New("element not found")

// fakeStudio records every adapter call and fails the ones listed in errs.
type fakeStudio struct {
	mu sync.Mutex

	calls       []string
	screenshots []string
	errs        map[string]error

	locations   []string
	challenges  []bool
	challengeEr error
	dismissable bool
	nextEnabled []bool
	onAwait     func()
	shareURL    string
	closed      bool
}

func newFakeStudio() *fakeStudio {
	return &fakeStudio{
		errs:     map[string]error{},
		shareURL: "https://youtu.be/dQw4w9WgXcQ",
	}
}

func (f *fakeStudio) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.errs[name]
}

func (f *fakeStudio) called(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == name {
			return true
		}
	}
	return false
}

func (f *fakeStudio) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeStudio) Open(context.Context) error { return f.record("Open") }

func (f *fakeStudio) Location(context.Context) (string, error) {
	if err := f.record("Location"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.locations) == 0 {
		return "https://studio.youtube.com/channel/UC123", nil
	}
	loc := f.locations[0]
	if len(f.locations) > 1 {
		f.locations = f.locations[1:]
	}
	return loc, nil
}

func (f *fakeStudio) ChallengePresent(context.Context) (bool, error) {
	_ = f.record("ChallengePresent")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.challengeEr != nil {
		return false, f.challengeEr
	}
	if len(f.challenges) == 0 {
		return false, nil
	}
	present := f.challenges[0]
	if len(f.challenges) > 1 {
		f.challenges = f.challenges[1:]
	}
	return present, nil
}

func (f *fakeStudio) DismissChallenge(context.Context) (bool, error) {
	if err := f.record("DismissChallenge"); err != nil {
		return false, err
	}
	return f.dismissable, nil
}

func (f *fakeStudio) OpenUploadDialog(context.Context) error { return f.record("OpenUploadDialog") }
func (f *fakeStudio) AttachVideo(context.Context, string) error {
	return f.record("AttachVideo")
}
func (f *fakeStudio) AwaitDetails(ctx context.Context) error {
	err := f.record("AwaitDetails")
	if f.onAwait != nil {
		f.onAwait()
		return ctx.Err()
	}
	return err
}
func (f *fakeStudio) FillTitle(context.Context, string) error {
	return f.record("FillTitle")
}
func (f *fakeStudio) FillDescription(context.Context, string) error {
	return f.record("FillDescription")
}
func (f *fakeStudio) AttachThumbnail(context.Context, string) error {
	return f.record("AttachThumbnail")
}
func (f *fakeStudio) SetMadeForKids(context.Context, bool) error {
	return f.record("SetMadeForKids")
}
func (f *fakeStudio) Next(context.Context) error { return f.record("Next") }

func (f *fakeStudio) NextEnabled(context.Context) (bool, error) {
	if err := f.record("NextEnabled"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.nextEnabled) == 0 {
		return true, nil
	}
	enabled := f.nextEnabled[0]
	f.nextEnabled = f.nextEnabled[1:]
	return enabled, nil
}

func (f *fakeStudio) SetVisibility(context.Context, Privacy) error {
	return f.record("SetVisibility")
}
func (f *fakeStudio) Publish(context.Context) error { return f.record("Publish") }

func (f *fakeStudio) ShareURL(context.Context) (string, error) {
	if err := f.record("ShareURL"); err != nil {
		return "", err
	}
	return f.shareURL, nil
}

func (f *fakeStudio) Screenshot(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.screenshots = append(f.screenshots, name)
	return nil
}

func (f *fakeStudio) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

type fakeLauncher struct {
	tab      *fakeStudio
	err      error
	launches int
	headless []bool
}

func (l *fakeLauncher) Launch(_ context.Context, headless bool) (Tab, error) {
	l.launches++
	l.headless = append(l.headless, headless)
	if l.err != nil {
		return nil, l.err
	}
	return l.tab, nil
}
