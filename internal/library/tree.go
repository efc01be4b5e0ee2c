// SPDX-License-Identifier: MIT

package library

import (
	"context"
	"sort"
	"strings"

	"github.com/papercast-dev/papercast/internal/store"
)

// TreeNode is one folder in the library tree with its contents.
type TreeNode struct {
	Folder   store.Folder    `json:"folder"`
	Children []*TreeNode     `json:"children"`
	Sources  []store.Source  `json:"sources"`
	Episodes []store.Episode `json:"episodes"`
}

// Tree is the whole library: root-level items plus the folder tree.
type Tree struct {
	Folders  []*TreeNode     `json:"folders"`
	Sources  []store.Source  `json:"sources"`
	Episodes []store.Episode `json:"episodes"`
}

// CreateFolder adds a folder under parentID (empty for root).
func (s *Service) CreateFolder(ctx context.Context, name, parentID string) (store.Folder, error) {
	if strings.TrimSpace(name) == "" {
		return store.Folder{}, ErrInvalidState
	}
	if parentID != "" {
		if _, err := s.store.GetFolder(ctx, parentID); err != nil {
			return store.Folder{}, err
		}
	}
	f := store.Folder{ID: newID(), Name: name, ParentID: parentID}
	if err := s.store.CreateFolder(ctx, f); err != nil {
		return store.Folder{}, err
	}
	return s.store.GetFolder(ctx, f.ID)
}

// RenameFolder changes a folder name.
func (s *Service) RenameFolder(ctx context.Context, id, name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidState
	}
	return s.store.RenameFolder(ctx, id, name)
}

// MoveFolder re-parents a folder; cycles are rejected by the store.
func (s *Service) MoveFolder(ctx context.Context, id, parentID string) error {
	return s.store.MoveFolder(ctx, id, parentID)
}

// DeleteFolder removes a folder, re-parenting its contents.
func (s *Service) DeleteFolder(ctx context.Context, id string) error {
	return s.store.DeleteFolder(ctx, id)
}

// Folders lists all folders flat, ordered by name.
func (s *Service) Folders(ctx context.Context) ([]store.Folder, error) {
	return s.store.ListFolders(ctx)
}

// LibraryTree assembles the nested folder view with sources and
// episodes placed in their folders.
func (s *Service) LibraryTree(ctx context.Context) (Tree, error) {
	folders, err := s.store.ListFolders(ctx)
	if err != nil {
		return Tree{}, err
	}
	sources, err := s.store.ListSources(ctx, "", "")
	if err != nil {
		return Tree{}, err
	}
	episodes, err := s.store.ListEpisodes(ctx, "", "")
	if err != nil {
		return Tree{}, err
	}

	nodes := make(map[string]*TreeNode, len(folders))
	for _, f := range folders {
		nodes[f.ID] = &TreeNode{Folder: f}
	}

	var tree Tree
	for _, f := range folders {
		n := nodes[f.ID]
		if parent, ok := nodes[f.ParentID]; ok {
			parent.Children = append(parent.Children, n)
		} else {
			tree.Folders = append(tree.Folders, n)
		}
	}
	for _, src := range sources {
		if n, ok := nodes[src.FolderID]; ok {
			n.Sources = append(n.Sources, src)
		} else {
			tree.Sources = append(tree.Sources, src)
		}
	}
	for _, ep := range episodes {
		if n, ok := nodes[ep.FolderID]; ok {
			n.Episodes = append(n.Episodes, ep)
		} else {
			tree.Episodes = append(tree.Episodes, ep)
		}
	}
	return tree, nil
}

// FolderPlaylist returns the ready episodes of a folder and all its
// descendants in a stable play order: the folder's own episodes by
// title, then each child folder's in name order, depth first.
func (s *Service) FolderPlaylist(ctx context.Context, folderID string) ([]store.Episode, error) {
	if folderID != "" {
		if _, err := s.store.GetFolder(ctx, folderID); err != nil {
			return nil, err
		}
	}
	folders, err := s.store.ListFolders(ctx)
	if err != nil {
		return nil, err
	}
	children := make(map[string][]store.Folder)
	for _, f := range folders {
		children[f.ParentID] = append(children[f.ParentID], f)
	}
	for _, kids := range children {
		sort.Slice(kids, func(i, j int) bool { return kids[i].Name < kids[j].Name })
	}

	var playlist []store.Episode
	var walk func(id string) error
	walk = func(id string) error {
		eps, err := s.store.ReadyEpisodesInFolder(ctx, id)
		if err != nil {
			return err
		}
		playlist = append(playlist, eps...)
		for _, child := range children[id] {
			if err := walk(child.ID); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(folderID); err != nil {
		return nil, err
	}
	return playlist, nil
}

// Tags lists all tags.
func (s *Service) Tags(ctx context.Context) ([]store.Tag, error) {
	return s.store.ListTags(ctx)
}

// EnsureTag creates a tag by name if it does not exist yet.
func (s *Service) EnsureTag(ctx context.Context, name string) (store.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Tag{}, ErrInvalidState
	}
	return s.store.EnsureTag(ctx, newID(), name)
}

// TagSource attaches a named tag to a source, creating the tag as
// needed.
func (s *Service) TagSource(ctx context.Context, sourceID, name string) (store.Tag, error) {
	if _, err := s.store.GetSource(ctx, sourceID); err != nil {
		return store.Tag{}, err
	}
	t, err := s.EnsureTag(ctx, name)
	if err != nil {
		return store.Tag{}, err
	}
	return t, s.store.TagSource(ctx, sourceID, t.ID)
}

// UntagSource detaches a tag from a source.
func (s *Service) UntagSource(ctx context.Context, sourceID, tagID string) error {
	return s.store.UntagSource(ctx, sourceID, tagID)
}

// TagEpisode attaches a named tag to an episode, creating the tag as
// needed.
func (s *Service) TagEpisode(ctx context.Context, episodeID, name string) (store.Tag, error) {
	if _, err := s.store.GetEpisode(ctx, episodeID); err != nil {
		return store.Tag{}, err
	}
	t, err := s.EnsureTag(ctx, name)
	if err != nil {
		return store.Tag{}, err
	}
	return t, s.store.TagEpisode(ctx, episodeID, t.ID)
}

// UntagEpisode detaches a tag from an episode.
func (s *Service) UntagEpisode(ctx context.Context, episodeID, tagID string) error {
	return s.store.UntagEpisode(ctx, episodeID, tagID)
}

// SourceTags lists a source's tags.
func (s *Service) SourceTags(ctx context.Context, sourceID string) ([]store.Tag, error) {
	return s.store.SourceTags(ctx, sourceID)
}

// EpisodeTags lists an episode's tags.
func (s *Service) EpisodeTags(ctx context.Context, episodeID string) ([]store.Tag, error) {
	return s.store.EpisodeTags(ctx, episodeID)
}

// DeleteTag removes a tag everywhere.
func (s *Service) DeleteTag(ctx context.Context, id string) error {
	return s.store.DeleteTag(ctx, id)
}
