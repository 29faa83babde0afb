package vulkan

import (
	"fmt"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/trigon/engine/renderer"
)

// The report callback has no way to carry a Go closure, so the sink is kept
// here.
var (
	sinkMu sync.RWMutex
	sink   renderer.DiagnosticSink = renderer.LogDiagnostic
)

// SetDiagnosticSink replaces the receiver of validation messages. A nil
// sink restores the logging default.
func SetDiagnosticSink(s renderer.DiagnosticSink) {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	if s == nil {
		s = renderer.LogDiagnostic
	}
	sink = s
}

func currentSink() renderer.DiagnosticSink {
	sinkMu.RLock()
	defer sinkMu.RUnlock()
	return sink
}

// ClassifyReport maps debug report flags onto a severity and a category.
// The most severe bit wins.
func ClassifyReport(flags vk.DebugReportFlags) (renderer.Severity, renderer.Category) {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		return renderer.SeverityError, renderer.CategoryValidation
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		return renderer.SeverityWarning, renderer.CategoryPerformance
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		return renderer.SeverityWarning, renderer.CategoryValidation
	case flags&vk.DebugReportFlags(vk.DebugReportInformationBit) != 0:
		return renderer.SeverityInfo, renderer.CategoryGeneral
	}
	return renderer.SeverityVerbose, renderer.CategoryGeneral
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	severity, category := ClassifyReport(flags)
	currentSink()(severity, category, fmt.Sprintf("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage))
	// Never abort the call that triggered the message.
	return vk.Bool32(vk.False)
}

func createDebugCallback(context *VulkanContext) error {
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit |
			vk.DebugReportPerformanceWarningBit | vk.DebugReportInformationBit),
		PfnCallback: dbgCallbackFunc,
	}

	var dbg vk.DebugReportCallback
	if err := vk.Error(vk.CreateDebugReportCallback(context.Instance, &debugCreateInfo, context.Allocator, &dbg)); err != nil {
		return fmt.Errorf("vk.CreateDebugReportCallback failed with %w", err)
	}
	context.debugCallback = dbg
	return nil
}

func destroyDebugCallback(context *VulkanContext) {
	if context.debugCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(context.Instance, context.debugCallback, context.Allocator)
		context.debugCallback = vk.NullDebugReportCallback
	}
}
