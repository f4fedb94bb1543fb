// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package radixscan implements the scan stage of a four-pass parallel
// radix sort (count, reduce, scan, scatter) on a CUDA-style CPU runtime.
//
// The reduce stage leaves one block of per-block partial counts in a device
// buffer. ExclusiveScan turns that block into exclusive prefix offsets in
// place, using a single execution group of WorkgroupSize lanes that
// cooperate through shared memory and barriers:
//
//   - each lane loads ElementsPerThread values at stride WorkgroupSize and
//     stores them transposed, so its own contiguous chunk forms one column
//   - each lane scans its column serially
//   - column totals are scanned across lanes with a doubling pass
//   - each lane adds its exclusive base to its column and stores the block
//     back, skipping padding at or beyond NumScanValues
//
// The scatter stage reads the offsets after Synchronize.
//
// The runtime runs every lane of a block as a goroutine. Kernels reach the
// block's barrier with ThreadID.SyncThreads and its dynamic shared memory
// with ThreadID.Shared. The gpu subpackage runs the same kernel on a WebGPU
// device.
package radixscan
