package app

// onFileChanged trains a created or rewritten file under the watch dir into
// the class named by its first directory. A rewritten file is trained again
// in full: counts only grow, so edits add to what the old version taught.
func (a *App) onFileChanged(path string) {
	class, ok := ClassOf(a.watchDir, path)
	if !ok {
		a.Logger.Debug("watch: file outside a class directory", "path", path)
		return
	}
	n, err := TrainFile(a.Classifier, class, path)
	if err != nil {
		a.Logger.Warn("watch: train failed", "path", path, "class", class, "err", err)
		return
	}
	a.Logger.Info("watch: trained", "path", path, "class", class, "tokens", n)
}
