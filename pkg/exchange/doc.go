/*
 * Copyright 2025 SREDiag Authors
 * Copyright 2023 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package exchange hands single typed values between two processes through
// named shared memory segments.
//
// A producer exports a value: a segment sized to hold exactly the 8-byte
// header and the payload is created, written and unmapped, and left in place.
// A consumer imports it: the segment is mapped read-only, the kind in the
// header is checked against the kind the consumer expects, the payload is
// copied out and the segment is destroyed. A second import of the same value
// fails with shm.ErrSegmentNotFound.
//
// There is no notification. Producer and consumer agree on the segment name
// and on the order of operations out of band, or the consumer polls with
// Await.
//
//	host, _ := exchange.NewEndpoint(exchange.RoleHost, cfg, exchange.Options{})
//	_ = host.Send(ctx, wire.Float64(3.5))
//
//	guest, _ := exchange.NewEndpoint(exchange.RoleGuest, cfg, exchange.Options{})
//	f, _ := exchange.ReceiveAs[wire.Float64](ctx, guest)
package exchange
