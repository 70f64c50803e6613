//go:build darwin && cgo

package device

/*
#cgo LDFLAGS: -framework CoreAudio -framework CoreFoundation
#include <stdlib.h>
#include <CoreAudio/CoreAudio.h>
#include <CoreFoundation/CoreFoundation.h>

static AudioObjectPropertySelector ah_selector(int role) {
	return role == 1 ? kAudioHardwarePropertyDefaultSystemOutputDevice : kAudioHardwarePropertyDefaultOutputDevice;
}

static OSStatus ah_get_role(int role, AudioDeviceID *out) {
	AudioObjectPropertyAddress addr = {
		ah_selector(role), kAudioObjectPropertyScopeGlobal, kAudioObjectPropertyElementMain
	};
	UInt32 size = sizeof(AudioDeviceID);
	return AudioObjectGetPropertyData(kAudioObjectSystemObject, &addr, 0, NULL, &size, out);
}

static OSStatus ah_set_role(int role, AudioDeviceID dev) {
	AudioObjectPropertyAddress addr = {
		ah_selector(role), kAudioObjectPropertyScopeGlobal, kAudioObjectPropertyElementMain
	};
	return AudioObjectSetPropertyData(kAudioObjectSystemObject, &addr, 0, NULL, sizeof(AudioDeviceID), &dev);
}

static OSStatus ah_device_uid(AudioDeviceID dev, char *buf, int len) {
	AudioObjectPropertyAddress addr = {
		kAudioDevicePropertyDeviceUID, kAudioObjectPropertyScopeGlobal, kAudioObjectPropertyElementMain
	};
	CFStringRef uid = NULL;
	UInt32 size = sizeof(CFStringRef);
	OSStatus st = AudioObjectGetPropertyData(dev, &addr, 0, NULL, &size, &uid);
	if (st != noErr) {
		return st;
	}
	Boolean ok = CFStringGetCString(uid, buf, len, kCFStringEncodingUTF8);
	CFRelease(uid);
	return ok ? noErr : kAudioHardwareUnspecifiedError;
}

static OSStatus ah_device_for_uid(const char *uid, AudioDeviceID *out) {
	CFStringRef s = CFStringCreateWithCString(NULL, uid, kCFStringEncodingUTF8);
	if (s == NULL) {
		return kAudioHardwareIllegalOperationError;
	}
	*out = kAudioObjectUnknown;
	AudioValueTranslation t = { &s, sizeof(CFStringRef), out, sizeof(AudioDeviceID) };
	AudioObjectPropertyAddress addr = {
		kAudioHardwarePropertyDeviceForUID, kAudioObjectPropertyScopeGlobal, kAudioObjectPropertyElementMain
	};
	UInt32 size = sizeof(t);
	OSStatus st = AudioObjectGetPropertyData(kAudioObjectSystemObject, &addr, 0, NULL, &size, &t);
	CFRelease(s);
	if (st == noErr && *out == kAudioObjectUnknown) {
		return kAudioHardwareBadDeviceError;
	}
	return st;
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"announce-helper/internal/domain"
)

const uidBufferSize = 512

func defaultDevice(role domain.EndpointRole) (string, error) {
	var dev C.AudioDeviceID
	if st := C.ah_get_role(C.int(role), &dev); st != 0 {
		return "", fmt.Errorf("%w: %s: OSStatus %d", domain.ErrProbe, role, int32(st))
	}
	var buf [uidBufferSize]C.char
	if st := C.ah_device_uid(dev, &buf[0], C.int(len(buf))); st != 0 {
		return "", fmt.Errorf("%w: %s: device %d uid: OSStatus %d", domain.ErrProbe, role, uint32(dev), int32(st))
	}
	return C.GoString(&buf[0]), nil
}

func setDefaultDevice(role domain.EndpointRole, uid string) error {
	cs := C.CString(uid)
	defer C.free(unsafe.Pointer(cs))

	var dev C.AudioDeviceID
	if st := C.ah_device_for_uid(cs, &dev); st != 0 {
		return fmt.Errorf("%w: %s: no device for uid %q: OSStatus %d", domain.ErrApply, role, uid, int32(st))
	}
	if st := C.ah_set_role(C.int(role), dev); st != 0 {
		return fmt.Errorf("%w: %s: OSStatus %d", domain.ErrApply, role, int32(st))
	}
	return nil
}
