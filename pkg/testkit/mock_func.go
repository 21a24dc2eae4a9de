package testkit

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/plantnet/plantnet-server/pkg/mail"
)

// FuncMocker stands in for a non-HTTP side effect such as sending mail.
// The runner arms it from a scenario step; the code under test calls it.
type FuncMocker interface {
	// Arm sets the canned answer. A statusCode >= 400 makes Call fail
	// with body as the error text.
	Arm(body []byte, statusCode int)
	Call(payload []byte) error
	Reset()
	WasCalled() int
	// Mock exposes the testify mock for On/Return chains and
	// AssertNumberOfCalls.
	Mock() *mock.Mock
}

// GenericFuncMocker is a testify-backed FuncMocker.
type GenericFuncMocker struct {
	method string

	mu     sync.Mutex
	m      mock.Mock
	calls  int
	failed error
}

func NewFuncMocker(method string) *GenericFuncMocker {
	gm := &GenericFuncMocker{method: method}
	gm.m.On("Call", mock.Anything).Return(nil)
	return gm
}

func (gm *GenericFuncMocker) Arm(body []byte, statusCode int) {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	gm.failed = nil
	if statusCode >= 400 {
		gm.failed = fmt.Errorf("%s: mocked failure %d: %s", gm.method, statusCode, strings.TrimSpace(string(body)))
	}
}

func (gm *GenericFuncMocker) Call(payload []byte) error {
	gm.mu.Lock()
	gm.calls++
	failed := gm.failed
	gm.mu.Unlock()

	args := gm.m.Called(payload)
	if failed != nil {
		return failed
	}
	return args.Error(0)
}

func (gm *GenericFuncMocker) Reset() {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	gm.calls = 0
	gm.failed = nil
	gm.m = mock.Mock{}
	gm.m.On("Call", mock.Anything).Return(nil)
}

func (gm *GenericFuncMocker) WasCalled() int {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	return gm.calls
}

func (gm *GenericFuncMocker) Mock() *mock.Mock { return &gm.m }

var (
	mockerMu sync.RWMutex
	mockers  = map[string]FuncMocker{
		"sendmail": NewFuncMocker("sendmail"),
	}
)

// RegisterMocker adds or replaces the mocker for method.
func RegisterMocker(method string, m FuncMocker) {
	mockerMu.Lock()
	defer mockerMu.Unlock()
	mockers[method] = m
}

// GetMocker returns the mocker for method, or nil.
func GetMocker(method string) FuncMocker {
	mockerMu.RLock()
	defer mockerMu.RUnlock()
	return mockers[method]
}

func resetAllMockers() {
	mockerMu.RLock()
	defer mockerMu.RUnlock()
	for _, m := range mockers {
		m.Reset()
	}
}

// ArmFuncMocks arms the mocker of every non-HTTP isMock step.
func ArmFuncMocks(s *Scenario) error {
	for i, step := range s.NetUtilMockStep {
		if step.Method == "httprequest" || !step.IsMock {
			continue
		}
		m := GetMocker(step.Method)
		if m == nil {
			if s.IsMockRequired {
				return fmt.Errorf("testkit: no mocker registered for %q (step %d)", step.Method, i)
			}
			continue
		}
		body, err := decodeBody(step.ReturnData.Body)
		if err != nil {
			return fmt.Errorf("testkit: step %d: %w", i, err)
		}
		m.Arm(body, step.ReturnData.StatusCode)
	}
	return nil
}

// AssertFuncMocksCalled returns one error per armed mocker that the
// request never reached.
func AssertFuncMocksCalled(s *Scenario) []error {
	var errs []error
	seen := map[string]bool{}
	for _, step := range s.NetUtilMockStep {
		if step.Method == "httprequest" || !step.IsMock || seen[step.Method] {
			continue
		}
		seen[step.Method] = true
		if m := GetMocker(step.Method); m != nil && m.WasCalled() == 0 {
			errs = append(errs, fmt.Errorf("testkit: mock %q was never called during %q", step.Method, s.Name))
		}
	}
	return errs
}

// MockMailer is a mail.Mailer that routes every message to the "sendmail"
// mocker. Sent keeps the messages for assertions.
type MockMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (mm *MockMailer) Send(ctx context.Context, m mail.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mm.mu.Lock()
	mm.sent = append(mm.sent, m)
	mm.mu.Unlock()

	mocker := GetMocker("sendmail")
	if mocker == nil {
		return nil
	}
	return mocker.Call(m.Raw("test@plantnet.local"))
}

func (mm *MockMailer) Sent() []mail.Message {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	return append([]mail.Message(nil), mm.sent...)
}
