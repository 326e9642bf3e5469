package vulkan

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/luminary/engine/core"
)

// LoadShaderModule reads a SPIR-V binary from disk and wraps it in a
// shader module.
func LoadShaderModule(context *VulkanContext, path string) (vk.ShaderModule, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return vk.NullShaderModule, errors.Wrapf(err, "reading shader %s", path)
	}
	if len(code) == 0 || len(code)%4 != 0 {
		return vk.NullShaderModule, errors.Newf("shader %s is not valid SPIR-V: %d bytes", path, len(code))
	}

	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}

	moduleCreateInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code)),
		PCode:    words,
	}
	var module vk.ShaderModule
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &moduleCreateInfo, context.Allocator, &module); res != vk.Success {
		return vk.NullShaderModule, errors.Newf("vkCreateShaderModule failed with %s", VulkanResultString(res))
	}
	return module, nil
}

// ShaderWatcher watches a compiled shader file and raises a dirty flag
// when it changes on disk. The frame loop consumes the flag at a frame
// boundary and rebuilds the pipeline, so live shader edits show up
// without restarting.
type ShaderWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	dirty   atomic.Bool
	done    chan struct{}
}

func NewShaderWatcher(path string) (*ShaderWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating shader watcher")
	}
	// Watch the directory, not the file: editors and compilers often
	// replace the file, which would silently drop a file-level watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, errors.Wrapf(err, "watching shader directory for %s", path)
	}

	sw := &ShaderWatcher{
		watcher: watcher,
		path:    filepath.Clean(path),
		done:    make(chan struct{}),
	}
	go sw.run()
	return sw, nil
}

func (sw *ShaderWatcher) run() {
	for {
		select {
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != sw.path {
				continue
			}
			if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Rename) {
				core.LogInfo("shader %s changed on disk", sw.path)
				sw.dirty.Store(true)
			}
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			core.LogWarn("shader watcher: %s", err.Error())
		case <-sw.done:
			return
		}
	}
}

// ConsumeDirty returns true once per change, clearing the flag.
func (sw *ShaderWatcher) ConsumeDirty() bool {
	return sw.dirty.Swap(false)
}

func (sw *ShaderWatcher) Close() error {
	close(sw.done)
	return sw.watcher.Close()
}
