// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rag

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kadirpekel/lectern/pkg/extractor"
)

// watchDebounce coalesces rapid write events for the same file.
const watchDebounce = 500 * time.Millisecond

// Watch re-ingests documents in dir as they are created or modified.
// Events are debounced so editors that write in several passes trigger a
// single ingestion. Watch blocks until ctx is canceled.
func (s *System) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}
	slog.Info("Watching docs folder", "folder", dir)

	var mu sync.Mutex
	pending := make(map[string]struct{})
	var timer *time.Timer

	ingestPending := func() {
		mu.Lock()
		paths := pending
		pending = make(map[string]struct{})
		mu.Unlock()

		for path := range paths {
			if _, _, err := s.AddCourseDocument(ctx, path); err != nil {
				slog.Warn("Failed to re-ingest changed document", "path", path, "error", err)
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !extractor.CanExtract(event.Name) {
				continue
			}

			mu.Lock()
			pending[event.Name] = struct{}{}
			mu.Unlock()

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, ingestPending)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("Docs folder watch error", "folder", dir, "error", err)
		}
	}
}
