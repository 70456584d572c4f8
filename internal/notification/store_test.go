package notification

import (
	"fmt"
	"sync"
	"testing"
)

func TestStore_AddNewestFirst(t *testing.T) {
	s := NewStore(10)

	s.AddNotification(Notification{ID: "a"})
	s.AddNotification(Notification{ID: "b"})
	s.AddNotification(Notification{ID: "c"})

	list := s.List()
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	for i, want := range []string{"c", "b", "a"} {
		if list[i].ID != want {
			t.Errorf("list[%d] = %s, want %s", i, list[i].ID, want)
		}
	}
}

func TestStore_Dedupe(t *testing.T) {
	s := NewStore(10)

	s.AddNotification(Notification{ID: "a", Title: "first"})
	s.AddNotification(Notification{ID: "a", Title: "second"})

	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
	if s.List()[0].Title != "first" {
		t.Errorf("Title = %s, want first", s.List()[0].Title)
	}
}

func TestStore_Cap(t *testing.T) {
	s := NewStore(3)

	for i := 0; i < 5; i++ {
		s.AddNotification(Notification{ID: fmt.Sprintf("n%d", i)})
	}

	list := s.List()
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	for i, want := range []string{"n4", "n3", "n2"} {
		if list[i].ID != want {
			t.Errorf("list[%d] = %s, want %s", i, list[i].ID, want)
		}
	}
}

func TestStore_DefaultCap(t *testing.T) {
	s := NewStore(0)

	for i := 0; i < DefaultMaxItems+10; i++ {
		s.AddNotification(Notification{ID: fmt.Sprintf("n%d", i)})
	}
	if s.Len() != DefaultMaxItems {
		t.Errorf("Len = %d, want %d", s.Len(), DefaultMaxItems)
	}
}

func TestStore_ReadTracking(t *testing.T) {
	s := NewStore(10)
	s.AddNotification(Notification{ID: "a"})
	s.AddNotification(Notification{ID: "b"})

	if s.UnreadCount() != 2 {
		t.Errorf("UnreadCount = %d, want 2", s.UnreadCount())
	}

	if !s.MarkRead("a") {
		t.Error("MarkRead(a) = false, want true")
	}
	if s.MarkRead("missing") {
		t.Error("MarkRead(missing) = true, want false")
	}
	if s.UnreadCount() != 1 {
		t.Errorf("UnreadCount = %d, want 1", s.UnreadCount())
	}

	s.MarkAllRead()
	if s.UnreadCount() != 0 {
		t.Errorf("UnreadCount = %d, want 0", s.UnreadCount())
	}
}

func TestStore_RemoveAndClear(t *testing.T) {
	s := NewStore(10)
	s.AddNotification(Notification{ID: "a"})
	s.AddNotification(Notification{ID: "b"})

	if !s.Remove("a") {
		t.Error("Remove(a) = false, want true")
	}
	if s.Remove("a") {
		t.Error("second Remove(a) = true, want false")
	}
	if s.Len() != 1 || s.List()[0].ID != "b" {
		t.Errorf("unexpected contents after remove: %+v", s.List())
	}

	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0 after Clear", s.Len())
	}
}

func TestStore_ListIsCopy(t *testing.T) {
	s := NewStore(10)
	s.AddNotification(Notification{ID: "a"})

	list := s.List()
	list[0].Read = true

	if s.UnreadCount() != 1 {
		t.Error("mutating List result affected the store")
	}
}

func TestStore_Concurrent(t *testing.T) {
	s := NewStore(100)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				s.AddNotification(Notification{ID: fmt.Sprintf("n%d-%d", i, j)})
				s.UnreadCount()
			}
		}(i)
	}
	wg.Wait()

	if s.Len() != 100 {
		t.Errorf("Len = %d, want 100", s.Len())
	}
}
