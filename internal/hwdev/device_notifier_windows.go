//go:build windows

package hwdev

import (
	"fmt"
	"log"
	"sync"
	"syscall"
	"unsafe"

	"github.com/go-ole/go-ole"
	"github.com/moutend/go-wca/pkg/wca"
)

// iidNotificationClient is the IID of IMMNotificationClient.
var iidNotificationClient = ole.NewGUID("{7991EEC9-7E89-4D85-8390-6C703CEC60C0}")

// deviceNotifier turns IMMNotificationClient COM callbacks into a fanout
// of Go channels, one per Watch() caller. hwdev only has a single caller
// today (cmd/crasd's hotplug loop) but the fanout costs nothing and keeps
// the notifier reusable from tests that want their own subscription.
type deviceNotifier struct {
	mu          sync.RWMutex
	mmde        *wca.IMMDeviceEnumerator
	client      *notificationClient
	subscribers []chan struct{}
}

type notificationClient struct {
	lpVtbl   *notificationClientVtbl
	refCount uint32
	notifier *deviceNotifier
}

type notificationClientVtbl struct {
	QueryInterface         uintptr
	AddRef                 uintptr
	Release                uintptr
	OnDeviceStateChanged   uintptr
	OnDeviceAdded          uintptr
	OnDeviceRemoved        uintptr
	OnDefaultDeviceChanged uintptr
	OnPropertyValueChanged uintptr
}

// newDeviceNotifier registers a notification client against mmde. The
// caller keeps owning mmde; newDeviceNotifier does not Release it.
func newDeviceNotifier(mmde *wca.IMMDeviceEnumerator) (*deviceNotifier, error) {
	dn := &deviceNotifier{mmde: mmde}
	dn.client = newNotificationClient(dn)

	hr, _, _ := syscall.SyscallN(
		dn.mmde.VTable().RegisterEndpointNotificationCallback,
		uintptr(unsafe.Pointer(dn.mmde)),
		uintptr(unsafe.Pointer(dn.client)),
	)
	if hr != 0 {
		return nil, fmt.Errorf("hwdev: RegisterEndpointNotificationCallback failed: 0x%08X", hr)
	}
	return dn, nil
}

// Subscribe returns a buffered channel that receives a signal on every
// hotplug-relevant callback. The buffer absorbs bursts (several
// endpoints changing state at once collapse into one pending signal,
// mirroring the coalescing the alert hub uses for its own dispatch).
func (dn *deviceNotifier) Subscribe() <-chan struct{} {
	dn.mu.Lock()
	defer dn.mu.Unlock()
	ch := make(chan struct{}, 1)
	dn.subscribers = append(dn.subscribers, ch)
	return ch
}

func (dn *deviceNotifier) notifyAll() {
	dn.mu.RLock()
	defer dn.mu.RUnlock()
	for _, ch := range dn.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (dn *deviceNotifier) Close() {
	dn.mu.Lock()
	defer dn.mu.Unlock()

	if dn.mmde != nil && dn.client != nil {
		hr, _, _ := syscall.SyscallN(
			dn.mmde.VTable().UnregisterEndpointNotificationCallback,
			uintptr(unsafe.Pointer(dn.mmde)),
			uintptr(unsafe.Pointer(dn.client)),
		)
		if hr != 0 {
			log.Printf("hwdev: UnregisterEndpointNotificationCallback: 0x%08X", hr)
		}
	}
	for _, ch := range dn.subscribers {
		close(ch)
	}
	dn.subscribers = nil
}

func newNotificationClient(notifier *deviceNotifier) *notificationClient {
	client := &notificationClient{refCount: 1, notifier: notifier}
	client.lpVtbl = &notificationClientVtbl{
		QueryInterface:         syscall.NewCallback(ncQueryInterface),
		AddRef:                 syscall.NewCallback(ncAddRef),
		Release:                syscall.NewCallback(ncRelease),
		OnDeviceStateChanged:   syscall.NewCallback(ncOnDeviceStateChanged),
		OnDeviceAdded:          syscall.NewCallback(ncOnDeviceAdded),
		OnDeviceRemoved:        syscall.NewCallback(ncOnDeviceRemoved),
		OnDefaultDeviceChanged: syscall.NewCallback(ncOnDefaultDeviceChanged),
		OnPropertyValueChanged: syscall.NewCallback(ncOnPropertyValueChanged),
	}
	return client
}

func ncQueryInterface(this *notificationClient, riid *ole.GUID, ppvObject *unsafe.Pointer) uintptr {
	if ole.IsEqualGUID(riid, ole.IID_IUnknown) || ole.IsEqualGUID(riid, iidNotificationClient) {
		*ppvObject = unsafe.Pointer(this)
		this.refCount++
		return 0
	}
	*ppvObject = nil
	return 0x80004002 // E_NOINTERFACE
}

func ncAddRef(this *notificationClient) uintptr {
	this.refCount++
	return uintptr(this.refCount)
}

func ncRelease(this *notificationClient) uintptr {
	this.refCount--
	return uintptr(this.refCount)
}

func ncOnDeviceStateChanged(this *notificationClient, _ *uint16, _ uint32) uintptr {
	if this.notifier != nil {
		this.notifier.notifyAll()
	}
	return 0
}

func ncOnDeviceAdded(this *notificationClient, _ *uint16) uintptr {
	if this.notifier != nil {
		this.notifier.notifyAll()
	}
	return 0
}

func ncOnDeviceRemoved(this *notificationClient, _ *uint16) uintptr {
	if this.notifier != nil {
		this.notifier.notifyAll()
	}
	return 0
}

func ncOnDefaultDeviceChanged(this *notificationClient, _ uint32, _ uint32, _ *uint16) uintptr {
	if this.notifier != nil {
		this.notifier.notifyAll()
	}
	return 0
}

func ncOnPropertyValueChanged(_ *notificationClient, _ *uint16, _ uintptr) uintptr {
	return 0
}

