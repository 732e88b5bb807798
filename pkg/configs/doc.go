/*
Package configs implements the config collaborator: a registry of named
config files kept under filesystem watch.

registerConfig adds a name → file binding (the file must exist and parse
as YAML), unregisterConfig removes it, listConfigs enumerates the current
registry. While registered, a file is watched with fsnotify; every write
triggers re-validation, a line in the output ring buffer, and a
config-changed broadcast to webhook subscribers.

Registry state is in-memory only and does not survive a restart.
*/
package configs
