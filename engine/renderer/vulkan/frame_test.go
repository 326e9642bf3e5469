package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/luminary/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFrameSync records the call order and returns scripted results.
type fakeFrameSync struct {
	waitResult  vk.Result
	resetResult vk.Result
	calls       []string
}

func (f *fakeFrameSync) WaitForFence(fence vk.Fence, timeoutNs uint64) vk.Result {
	f.calls = append(f.calls, "wait")
	return f.waitResult
}

func (f *fakeFrameSync) ResetFence(fence vk.Fence) vk.Result {
	f.calls = append(f.calls, "resetFence")
	return f.resetResult
}

func (f *fakeFrameSync) ResetCommandBuffer(buffer vk.CommandBuffer) vk.Result {
	f.calls = append(f.calls, "resetBuffer")
	return vk.Success
}

func TestBeginCycleOrdering(t *testing.T) {
	sync := &fakeFrameSync{waitResult: vk.Success, resetResult: vk.Success}
	slot := &FrameSlot{}

	err := slot.BeginCycle(sync, frameFenceTimeoutNs)
	require.NoError(t, err)
	// The fence must be waited on and rearmed before the buffer is
	// touched.
	assert.Equal(t, []string{"wait", "resetFence", "resetBuffer"}, sync.calls)
}

func TestBeginCycleTimeout(t *testing.T) {
	sync := &fakeFrameSync{waitResult: vk.Timeout}
	slot := &FrameSlot{}

	err := slot.BeginCycle(sync, frameFenceTimeoutNs)
	assert.ErrorIs(t, err, core.ErrDrawTimeout)
	// A timed-out wait leaves the fence and buffer untouched.
	assert.Equal(t, []string{"wait"}, sync.calls)
}

func TestBeginCycleWaitError(t *testing.T) {
	sync := &fakeFrameSync{waitResult: vk.ErrorDeviceLost}
	slot := &FrameSlot{}

	err := slot.BeginCycle(sync, frameFenceTimeoutNs)
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrDrawTimeout)
}

func TestBeginCycleResetFenceError(t *testing.T) {
	sync := &fakeFrameSync{waitResult: vk.Success, resetResult: vk.ErrorOutOfDeviceMemory}
	slot := &FrameSlot{}

	err := slot.BeginCycle(sync, frameFenceTimeoutNs)
	require.Error(t, err)
	assert.Equal(t, []string{"wait", "resetFence"}, sync.calls)
}
